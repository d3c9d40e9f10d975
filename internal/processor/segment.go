package processor

import (
	"iter"

	"github.com/linuxmatters/accentprep/internal/audio"
)

// SegmentLength returns the nominal clip length in samples for durationMS
func SegmentLength(durationMS float64, sampleRate int) int {
	return audio.MSToSamples(durationMS, sampleRate)
}

// SegmentCount returns how many clips Segments yields: ceil(L / n)
func SegmentCount(w audio.Waveform, durationMS float64) int {
	n := SegmentLength(durationMS, w.SampleRate)
	if n <= 0 || w.Len() == 0 {
		return 0
	}
	return (w.Len() + n - 1) / n
}

// Segments slices w into consecutive clips of durationMS. Clip i covers samples
// [i*n, min((i+1)*n, L)); the last clip keeps the remainder and is never padded
// or dropped. Each clip owns a copy of its samples, so the caller may persist and
// discard clips one at a time. Ranging over the sequence again regenerates it.
func Segments(w audio.Waveform, durationMS float64, label, source string) iter.Seq[audio.Clip] {
	n := SegmentLength(durationMS, w.SampleRate)
	return func(yield func(audio.Clip) bool) {
		if n <= 0 {
			return
		}
		for i, start := 0, 0; start < w.Len(); i, start = i+1, start+n {
			end := min(start+n, w.Len())
			samples := make([]float64, end-start)
			copy(samples, w.Samples[start:end])

			clip := audio.Clip{
				Index:  i,
				Label:  label,
				Source: source,
				Waveform: audio.Waveform{
					Samples:    samples,
					SampleRate: w.SampleRate,
				},
			}
			if !yield(clip) {
				return
			}
		}
	}
}
