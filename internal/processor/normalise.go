package processor

import (
	"math"

	"github.com/linuxmatters/accentprep/internal/audio"
)

// NormalisationResult contains the outcome of loudness normalisation
type NormalisationResult struct {
	InputDBFS      float64 // average loudness before gain
	OutputDBFS     float64 // average loudness after gain
	TargetDBFS     float64
	GainDB         float64 // applied gain; 0 when skipped
	ClippedSamples int     // samples beyond full scale after gain (clipped when written)
	Skipped        bool    // degenerate input, no gain applied
}

// Normalise applies a single uniform gain so the waveform's average loudness
// (20*log10 of its RMS, full scale = 1.0) equals targetDBFS.
//
// No limiter is applied: samples pushed past full scale are counted in the result
// and clipped only when the waveform is encoded. Empty, all-zero or non-finite
// input cannot be measured; it is returned unchanged with a *DegenerateInputError
// rather than receiving an infinite gain.
func Normalise(w audio.Waveform, targetDBFS float64) (audio.Waveform, *NormalisationResult, error) {
	result := &NormalisationResult{TargetDBFS: targetDBFS}

	if reason := degenerateReason(w.Samples); reason != "" {
		result.Skipped = true
		result.InputDBFS = math.Inf(-1)
		result.OutputDBFS = math.Inf(-1)
		return w.Clone(), result, &DegenerateInputError{Stage: StageNormalise, Reason: reason}
	}

	current := RMSDBFS(w.Samples)
	result.InputDBFS = current
	result.GainDB = targetDBFS - current

	gain := DbToLinear(result.GainDB)
	out := make([]float64, len(w.Samples))
	for i, s := range w.Samples {
		v := s * gain
		if math.Abs(v) > 1.0 {
			result.ClippedSamples++
		}
		out[i] = v
	}

	result.OutputDBFS = RMSDBFS(out)
	return audio.Waveform{Samples: out, SampleRate: w.SampleRate}, result, nil
}
