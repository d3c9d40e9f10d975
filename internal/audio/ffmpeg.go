package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// decodeWithFFmpeg converts containers without a native Go decoder (m4a, webm, ogg...)
// into a temporary mono WAV at the target rate, decodes it and removes it.
// The temporary file never outlives the call, on success or failure.
func decodeWithFFmpeg(ctx context.Context, path string, sampleRate int) ([][]float64, *Metadata, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	tmp, err := os.CreateTemp("", "accentprep-decode-*.wav")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	// -ac 1: mono, -ar: canonical rate, pcm_s16le: plain WAV go-audio/wav can read
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return nil, nil, fmt.Errorf("ffmpeg: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ffmpeg output: %w", err)
	}
	defer f.Close()

	channels, meta, err := decodeWAV(f)
	if err != nil {
		return nil, nil, err
	}
	meta.Codec = "ffmpeg"
	return channels, meta, nil
}
