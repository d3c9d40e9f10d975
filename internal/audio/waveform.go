// Package audio provides the canonical waveform type and audio file I/O
package audio

import "time"

// Format describes the canonical layout every pipeline stage operates on
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is 16 kHz mono
func DefaultFormat() Format {
	return Format{SampleRate: 16000, Channels: 1}
}

// Waveform is a mono sequence of samples in the range [-1, 1] at a single sample rate.
// Stages treat a Waveform as a value: they never modify Samples in place and always
// return a new Waveform.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples
func (w Waveform) Len() int {
	return len(w.Samples)
}

// Duration returns the playback duration
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// DurationMS returns the duration in (possibly fractional) milliseconds
func (w Waveform) DurationMS() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) * 1000.0 / float64(w.SampleRate)
}

// Clone returns a copy that shares no memory with w
func (w Waveform) Clone() Waveform {
	out := Waveform{SampleRate: w.SampleRate}
	if w.Samples != nil {
		out.Samples = make([]float64, len(w.Samples))
		copy(out.Samples, w.Samples)
	}
	return out
}

// SamplesForMS converts a millisecond duration to a sample count at the waveform's rate
func (w Waveform) SamplesForMS(ms float64) int {
	return MSToSamples(ms, w.SampleRate)
}

// MSToSamples converts milliseconds to a whole number of samples, rounding to nearest
func MSToSamples(ms float64, sampleRate int) int {
	n := ms * float64(sampleRate) / 1000.0
	return int(n + 0.5)
}

// Clip is one fixed-duration slice of a cleaned waveform.
// Index is the ordinal position within its parent; the last clip may be shorter
// than the nominal segment duration.
type Clip struct {
	Index    int
	Label    string
	Source   string
	Waveform Waveform
}
