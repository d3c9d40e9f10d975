package processor

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/linuxmatters/accentprep/internal/audio"
)

// NoiseOptions configures the stationary spectral gate
type NoiseOptions struct {
	Strength     float64 // 0 = no reduction, 1 = full reduction; clamped to [0, 1]
	FFTSize      int     // STFT frame length in samples; hop is FFTSize/4
	StdThreshold float64 // a bin is signal when its level exceeds mean + StdThreshold*std
	FreqSmoothHz float64 // triangular mask smoothing half-width across frequency
	TimeSmoothMS float64 // triangular mask smoothing half-width across time
	HumFrequency float64 // mains fundamental to notch out, 0 disables
	HumHarmonics int
	HumWidthHz   float64
}

// DefaultNoiseOptions returns full-strength reduction with the stock analysis settings
func DefaultNoiseOptions() NoiseOptions {
	cfg := DefaultConfig()
	opts := cfg.NoiseOptions()
	opts.Strength = 1.0
	return opts
}

const (
	defaultNoiseFFTSize = 1024
	spectralFloor       = 1e-10
)

// ReduceNoise attenuates stationary background noise.
//
// The waveform is analysed with a Hann-windowed STFT. Each frequency bin gets a
// noise profile from the mean and standard deviation of its level (dB) over the
// whole file; time-frequency cells above mean + StdThreshold*std are signal. The
// binary mask is smoothed in both directions and blended with Strength, so a cell
// judged to be noise keeps (1 - Strength) of its amplitude. The result is
// resynthesised by weighted overlap-add and has the same length as the input.
//
// Empty, all-zero or non-finite input returns a copy of the input together with a
// *DegenerateInputError.
func ReduceNoise(w audio.Waveform, opts NoiseOptions) (audio.Waveform, error) {
	if reason := degenerateReason(w.Samples); reason != "" {
		return w.Clone(), &DegenerateInputError{Stage: StageDenoise, Reason: reason}
	}

	strength := clamp(opts.Strength, 0, 1)
	if strength == 0 {
		return w.Clone(), nil
	}

	nfft := opts.FFTSize
	if nfft < 16 || nfft%4 != 0 {
		nfft = defaultNoiseFFTSize
	}

	s := newSTFT(w.Samples, nfft)
	bins := nfft/2 + 1
	binHz := float64(w.SampleRate) / float64(nfft)
	hopMS := float64(s.hop) * 1000.0 / float64(w.SampleRate)

	threshold := s.noiseProfile(opts.StdThreshold)
	hum := humBins(bins, binHz, opts)

	freqRadius := 0
	if binHz > 0 {
		freqRadius = int(opts.FreqSmoothHz / binHz)
	}
	timeRadius := 0
	if hopMS > 0 {
		timeRadius = int(opts.TimeSmoothMS / hopMS)
	}

	// Frames are gated in a ring so only 2*timeRadius+1 spectra are held at once
	ringSize := 2*timeRadius + 1
	ringCoeff := make([][]complex128, ringSize)
	ringMask := make([][]float64, ringSize)
	for i := range ringSize {
		ringCoeff[i] = make([]complex128, bins)
		ringMask[i] = make([]float64, bins)
	}
	rawMask := make([]float64, bins)
	gain := make([]float64, bins)
	timeWeights := triangle(timeRadius)

	for g := 0; g < s.frames+timeRadius; g++ {
		if g < s.frames {
			slot := g % ringSize
			s.analyse(g, ringCoeff[slot])
			for k, c := range ringCoeff[slot] {
				if 20*math.Log10(max(cmplx.Abs(c), spectralFloor)) > threshold[k] {
					rawMask[k] = 1
				} else {
					rawMask[k] = 0
				}
			}
			smoothBins(ringMask[slot], rawMask, freqRadius)
		}

		f := g - timeRadius
		if f < 0 {
			continue
		}

		var wsum float64
		clear(gain)
		for j := max(0, f-timeRadius); j <= min(s.frames-1, f+timeRadius); j++ {
			wt := timeWeights[j-f+timeRadius]
			wsum += wt
			for k, m := range ringMask[j%ringSize] {
				gain[k] += wt * m
			}
		}
		for k := range gain {
			gain[k] = gain[k]/wsum*strength + (1 - strength)
			if hum != nil && hum[k] {
				gain[k] = 1 - strength
			}
		}

		coeff := ringCoeff[f%ringSize]
		for k := range coeff {
			coeff[k] *= complex(gain[k], 0)
		}
		s.synthesise(f, coeff)
	}

	return audio.Waveform{Samples: s.output(), SampleRate: w.SampleRate}, nil
}

// degenerateReason returns why samples cannot be processed, or "" if they can
func degenerateReason(samples []float64) string {
	if len(samples) == 0 {
		return "empty waveform"
	}
	nonZero := false
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "non-finite samples"
		}
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return "all-zero waveform"
	}
	return ""
}

// humBins marks the bins around the mains fundamental and its harmonics, which
// are always treated as noise. Returns nil when hum suppression is off.
func humBins(bins int, binHz float64, opts NoiseOptions) []bool {
	if opts.HumFrequency <= 0 || binHz <= 0 {
		return nil
	}
	harmonics := max(1, opts.HumHarmonics)
	width := max(opts.HumWidthHz, binHz/2)

	marked := make([]bool, bins)
	for h := 1; h <= harmonics; h++ {
		centre := float64(h) * opts.HumFrequency
		for k := range marked {
			if math.Abs(float64(k)*binHz-centre) <= width {
				marked[k] = true
			}
		}
	}
	return marked
}

// triangle returns weights r+1-|d| for d in [-r, r]
func triangle(r int) []float64 {
	w := make([]float64, 2*r+1)
	for d := -r; d <= r; d++ {
		w[d+r] = float64(r + 1 - abs(d))
	}
	return w
}

// smoothBins applies a triangular moving average across bins, renormalised at the edges
func smoothBins(dst, src []float64, radius int) {
	if radius <= 0 {
		copy(dst, src)
		return
	}
	weights := triangle(radius)
	for k := range dst {
		var acc, wsum float64
		for j := max(0, k-radius); j <= min(len(src)-1, k+radius); j++ {
			wt := weights[j-k+radius]
			acc += wt * src[j]
			wsum += wt
		}
		dst[k] = acc / wsum
	}
}

// stft holds the analysis and overlap-add state for one waveform
type stft struct {
	fft    *fourier.FFT
	window []float64
	nfft   int
	hop    int
	frames int
	pad    int
	n      int

	padded []float64
	frame  []float64
	out    []float64
	norm   []float64
}

// newSTFT prepares a centred STFT with hop nfft/4. The signal is zero padded by
// nfft/2 at the start so frame f is centred on sample f*hop.
func newSTFT(samples []float64, nfft int) *stft {
	hop := nfft / 4
	n := len(samples)
	frames := n/hop + 1
	pad := nfft / 2
	length := (frames-1)*hop + nfft

	padded := make([]float64, length)
	copy(padded[pad:], samples)

	window := make([]float64, nfft)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(nfft))
	}

	return &stft{
		fft:    fourier.NewFFT(nfft),
		window: window,
		nfft:   nfft,
		hop:    hop,
		frames: frames,
		pad:    pad,
		n:      n,
		padded: padded,
		frame:  make([]float64, nfft),
		out:    make([]float64, length),
		norm:   make([]float64, length),
	}
}

// analyse writes the spectrum of frame f into dst
func (s *stft) analyse(f int, dst []complex128) {
	start := f * s.hop
	for i, wv := range s.window {
		s.frame[i] = s.padded[start+i] * wv
	}
	s.fft.Coefficients(dst, s.frame)
}

// noiseProfile returns the per-bin signal threshold in dB
func (s *stft) noiseProfile(nStd float64) []float64 {
	bins := s.nfft/2 + 1
	sum := make([]float64, bins)
	sumSq := make([]float64, bins)
	coeff := make([]complex128, bins)

	for f := range s.frames {
		s.analyse(f, coeff)
		for k, c := range coeff {
			db := 20 * math.Log10(max(cmplx.Abs(c), spectralFloor))
			sum[k] += db
			sumSq[k] += db * db
		}
	}

	count := float64(s.frames)
	threshold := make([]float64, bins)
	for k := range threshold {
		mean := sum[k] / count
		variance := max(0, sumSq[k]/count-mean*mean)
		threshold[k] = mean + nStd*math.Sqrt(variance)
	}
	return threshold
}

// synthesise overlap-adds the inverse transform of coeff at frame f
func (s *stft) synthesise(f int, coeff []complex128) {
	s.fft.Sequence(s.frame, coeff)
	start := f * s.hop
	scale := 1.0 / float64(s.nfft)
	for i, wv := range s.window {
		s.out[start+i] += s.frame[i] * scale * wv
		s.norm[start+i] += wv * wv
	}
}

// output removes the padding and the window gain
func (s *stft) output() []float64 {
	result := make([]float64, s.n)
	for i := range result {
		p := s.pad + i
		if s.norm[p] > spectralFloor {
			result[i] = s.out[p] / s.norm[p]
		}
	}
	return result
}

func clamp(val, lo, hi float64) float64 {
	if math.IsNaN(val) {
		return lo
	}
	return math.Max(lo, math.Min(hi, val))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
