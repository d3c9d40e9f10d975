package audio

import "math"

// resampleHalfTaps is the one-sided kernel length in output-rate samples
const resampleHalfTaps = 16

// Resampler converts mono audio between sample rates using windowed-sinc interpolation.
// When downsampling the kernel is widened so it also acts as the anti-aliasing low-pass.
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64 // input samples per output sample
	cutoff     float64 // normalised to the input Nyquist frequency
	halfWidth  float64 // kernel half-width in input samples
}

// NewResampler creates a resampler from inputRate to outputRate
func NewResampler(inputRate, outputRate int) *Resampler {
	ratio := float64(inputRate) / float64(outputRate)
	cutoff := 1.0
	if outputRate < inputRate {
		cutoff = float64(outputRate) / float64(inputRate)
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      ratio,
		cutoff:     cutoff,
		halfWidth:  float64(resampleHalfTaps) / cutoff,
	}
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	return int(math.Round(float64(inputSamples) / r.ratio))
}

// Resample converts a whole buffer. The input is not modified.
func (r *Resampler) Resample(input []float64) []float64 {
	n := r.OutputSamplesNeeded(len(input))
	out := make([]float64, n)
	if len(input) == 0 {
		return out
	}

	for i := range out {
		pos := float64(i) * r.ratio
		lo := int(math.Ceil(pos - r.halfWidth))
		hi := int(math.Floor(pos + r.halfWidth))
		if lo < 0 {
			lo = 0
		}
		if hi > len(input)-1 {
			hi = len(input) - 1
		}

		var acc, norm float64
		for k := lo; k <= hi; k++ {
			w := r.kernel(pos - float64(k))
			acc += input[k] * w
			norm += w
		}
		if norm != 0 {
			out[i] = acc / norm
		}
	}
	return out
}

// kernel evaluates the Blackman-windowed sinc at offset t (input samples)
func (r *Resampler) kernel(t float64) float64 {
	x := t / r.halfWidth
	if x <= -1 || x >= 1 {
		return 0
	}
	window := 0.42 + 0.5*math.Cos(math.Pi*x) + 0.08*math.Cos(2*math.Pi*x)
	return r.cutoff * sinc(r.cutoff*t) * window
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Resample returns w converted to the target rate. Equal rates return a copy.
func Resample(w Waveform, targetRate int) Waveform {
	if w.SampleRate == targetRate || w.SampleRate <= 0 {
		out := w.Clone()
		if out.SampleRate <= 0 {
			out.SampleRate = targetRate
		}
		return out
	}
	r := NewResampler(w.SampleRate, targetRate)
	return Waveform{Samples: r.Resample(w.Samples), SampleRate: targetRate}
}
