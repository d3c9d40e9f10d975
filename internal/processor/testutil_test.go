package processor

import (
	"math"
	"testing"

	"github.com/linuxmatters/accentprep/internal/audio"
)

// TestAudioOptions configures the synthetic audio to generate
type TestAudioOptions struct {
	DurationSecs float64 // Total duration in seconds
	SampleRate   int     // Sample rate (default: 16000)
	ToneFreq     float64 // Sine wave frequency in Hz (0 = no tone)
	ToneLevel    float64 // Tone peak level in dBFS (e.g., -23.0)
	NoiseLevel   float64 // White noise peak level in dBFS (0 = no noise, -60 = quiet noise)
	SilenceGap   struct {
		Start    float64 // Start time of silence gap in seconds
		Duration float64 // Duration of silence gap in seconds
	}
}

// generateTestAudio creates a synthetic waveform for testing.
// The generated audio can include a sine wave tone, white noise, and a digital silence gap.
func generateTestAudio(t *testing.T, opts TestAudioOptions) audio.Waveform {
	t.Helper()

	// Set defaults
	if opts.SampleRate == 0 {
		opts.SampleRate = 16000
	}
	if opts.DurationSecs == 0 {
		opts.DurationSecs = 5.0
	}

	totalSamples := int(opts.DurationSecs * float64(opts.SampleRate))
	samples := make([]float64, totalSamples)

	// Convert dBFS to linear amplitude (0 dBFS = 1.0)
	toneAmp := 0.0
	if opts.ToneFreq > 0 && opts.ToneLevel < 0 {
		toneAmp = math.Pow(10.0, opts.ToneLevel/20.0)
	}

	noiseAmp := 0.0
	if opts.NoiseLevel < 0 {
		noiseAmp = math.Pow(10.0, opts.NoiseLevel/20.0)
	}

	silenceStart := int(opts.SilenceGap.Start * float64(opts.SampleRate))
	silenceEnd := int((opts.SilenceGap.Start + opts.SilenceGap.Duration) * float64(opts.SampleRate))

	nextRandom := newLCG(12345)

	for i := range samples {
		if i >= silenceStart && i < silenceEnd && opts.SilenceGap.Duration > 0 {
			continue
		}

		var sample float64
		if toneAmp > 0 {
			t := float64(i) / float64(opts.SampleRate)
			sample += toneAmp * math.Sin(2.0*math.Pi*opts.ToneFreq*t)
		}
		if noiseAmp > 0 {
			sample += noiseAmp * nextRandom()
		}
		samples[i] = sample
	}

	return audio.Waveform{Samples: samples, SampleRate: opts.SampleRate}
}

// newLCG returns a deterministic noise source in [-1, 1]
// (avoids importing math/rand and seeding complexity)
func newLCG(seed uint32) func() float64 {
	state := seed
	return func() float64 {
		// LCG parameters from Numerical Recipes
		state = state*1664525 + 1013904223
		return (float64(state)/float64(0xFFFFFFFF))*2.0 - 1.0
	}
}

// constantWaveform returns n samples of value v
func constantWaveform(n int, v float64, sampleRate int) audio.Waveform {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return audio.Waveform{Samples: s, SampleRate: sampleRate}
}

func rmsOf(samples []float64) float64 {
	return math.Sqrt(meanSquare(samples))
}
