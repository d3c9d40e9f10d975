package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// wavFormatFloat is the WAVE format tag for IEEE float samples
const wavFormatFloat = 3

// ErrDecode is the sentinel wrapped by every DecodeError
var ErrDecode = errors.New("decode failed")

// DecodeError reports an unreadable, corrupt or unsupported input container
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// Metadata describes the source recording before normalisation
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitDepth   int
	Codec      string
}

// nativeExtensions are decoded in-process; anything else goes through ffmpeg
var nativeExtensions = map[string]string{
	".wav":  "pcm",
	".wave": "pcm",
	".mp3":  "mp3",
	".flac": "flac",
}

// ffmpegExtensions are containers accepted via the ffmpeg fallback
var ffmpegExtensions = map[string]bool{
	".m4a":  true,
	".mp4":  true,
	".aac":  true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".webm": true,
	".wma":  true,
	".aiff": true,
	".aif":  true,
}

// IsAudioFile reports whether the path has an extension Load can handle
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, native := nativeExtensions[ext]
	return native || ffmpegExtensions[ext]
}

// Load decodes an audio file and converts it to the target format (mono, fixed rate).
// Any decoding failure is returned as a *DecodeError.
func Load(ctx context.Context, path string, target Format) (Waveform, *Metadata, error) {
	if target.SampleRate <= 0 {
		return Waveform{}, nil, fmt.Errorf("invalid target sample rate: %d", target.SampleRate)
	}

	ext := strings.ToLower(filepath.Ext(path))
	codec, native := nativeExtensions[ext]

	var (
		channels [][]float64
		meta     *Metadata
		err      error
	)
	switch {
	case native:
		channels, meta, err = decodeFile(path, codec)
	case ffmpegExtensions[ext]:
		channels, meta, err = decodeWithFFmpeg(ctx, path, target.SampleRate)
	default:
		err = fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return Waveform{}, nil, &DecodeError{Path: path, Err: err}
	}
	if len(channels) == 0 || len(channels[0]) == 0 {
		return Waveform{}, nil, &DecodeError{Path: path, Err: errors.New("no audio samples")}
	}

	mono := Downmix(channels)
	w := Resample(Waveform{Samples: mono, SampleRate: meta.SampleRate}, target.SampleRate)
	return w, meta, nil
}

func decodeFile(path, codec string) ([][]float64, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	switch codec {
	case "mp3":
		return decodeMP3(f)
	case "flac":
		return decodeFLAC(f)
	default:
		return decodeWAV(f)
	}
}

// decodeWAV reads a PCM WAV stream into per-channel float samples
func decodeWAV(r io.ReadSeeker) ([][]float64, *Metadata, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, nil, errors.New("not a valid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, nil, errors.New("missing WAV format chunk")
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	codec := "pcm"
	var channels [][]float64
	switch decoder.WavAudioFormat {
	case wavFormatFloat:
		// go-audio hands back the raw IEEE bits as integers
		if bitDepth != 32 {
			return nil, nil, fmt.Errorf("unsupported %d-bit float WAV", bitDepth)
		}
		channels = deinterleaveFloat32(buf)
		codec = "pcm_f32"
	default:
		channels = deinterleave(buf, bitDepth)
	}

	meta := &Metadata{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   bitDepth,
		Codec:      codec,
	}
	if meta.SampleRate > 0 && len(channels) > 0 {
		meta.Duration = float64(len(channels[0])) / float64(meta.SampleRate)
	}
	return channels, meta, nil
}

// deinterleave splits an interleaved integer buffer into normalised channels
func deinterleave(buf *goaudio.IntBuffer, bitDepth int) [][]float64 {
	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	out := make([][]float64, numCh)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	// 8-bit WAV is unsigned; everything wider is signed two's complement
	var scale, offset float64
	if bitDepth <= 8 {
		scale = 128.0
		offset = 128.0
	} else {
		scale = float64(int64(1) << (bitDepth - 1))
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < numCh; ch++ {
			out[ch][i] = (float64(buf.Data[i*numCh+ch]) - offset) / scale
		}
	}
	return out
}

// deinterleaveFloat32 splits an interleaved buffer whose values are float32 bit patterns
func deinterleaveFloat32(buf *goaudio.IntBuffer) [][]float64 {
	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	out := make([][]float64, numCh)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numCh; ch++ {
			out[ch][i] = float64(math.Float32frombits(uint32(buf.Data[i*numCh+ch])))
		}
	}
	return out
}

// decodeMP3 decodes an MP3 stream; go-mp3 always produces 16-bit stereo
func decodeMP3(r io.Reader) ([][]float64, *Metadata, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	const numCh = 2
	frames := len(pcm) / (2 * numCh)
	out := [][]float64{make([]float64, frames), make([]float64, frames)}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numCh; ch++ {
			off := (i*numCh + ch) * 2
			sample16 := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			out[ch][i] = float64(sample16) / 32768.0
		}
	}

	meta := &Metadata{
		SampleRate: decoder.SampleRate(),
		Channels:   numCh,
		BitDepth:   16,
		Codec:      "mp3",
	}
	if meta.SampleRate > 0 {
		meta.Duration = float64(frames) / float64(meta.SampleRate)
	}
	return out, meta, nil
}

// decodeFLAC decodes every frame of a FLAC stream
func decodeFLAC(r io.Reader) ([][]float64, *Metadata, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	numCh := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if numCh <= 0 || bitDepth <= 0 {
		return nil, nil, fmt.Errorf("invalid FLAC stream info: %d channels, %d bits", numCh, bitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))

	out := make([][]float64, numCh)
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		for ch := 0; ch < numCh && ch < len(frame.Subframes); ch++ {
			for _, s := range frame.Subframes[ch].Samples {
				out[ch] = append(out[ch], float64(s)/scale)
			}
		}
	}

	meta := &Metadata{
		SampleRate: int(info.SampleRate),
		Channels:   numCh,
		BitDepth:   bitDepth,
		Codec:      "flac",
	}
	if meta.SampleRate > 0 && len(out[0]) > 0 {
		meta.Duration = float64(len(out[0])) / float64(meta.SampleRate)
	}
	return out, meta, nil
}

// Downmix averages all channels into one. A single channel is copied.
func Downmix(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) < frames {
			frames = len(ch)
		}
	}

	mono := make([]float64, frames)
	if len(channels) == 1 {
		copy(mono, channels[0])
		return mono
	}
	n := float64(len(channels))
	for i := 0; i < frames; i++ {
		var sum float64
		for _, ch := range channels {
			sum += ch[i]
		}
		mono[i] = sum / n
	}
	return mono
}
