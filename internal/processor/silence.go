package processor

import (
	"github.com/linuxmatters/accentprep/internal/audio"
)

// SilenceOptions configures silence detection
type SilenceOptions struct {
	ThresholdDBFS float64 // a window whose RMS is at or below this level is silent
	MinSilenceMS  float64 // window length; shorter quiet spans are kept
	SeekStepMS    float64 // hop between successive windows
}

// Interval is a half-open span of samples [Start, End)
type Interval struct {
	Start      int
	End        int
	SampleRate int
}

// StartMS returns the interval start in milliseconds
func (iv Interval) StartMS() float64 {
	return samplesToMS(iv.Start, iv.SampleRate)
}

// EndMS returns the interval end in milliseconds
func (iv Interval) EndMS() float64 {
	return samplesToMS(iv.End, iv.SampleRate)
}

// Len returns the interval length in samples
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

func samplesToMS(n, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(n) * 1000.0 / float64(rate)
}

// TrimResult reports what the silence trimmer did
type TrimResult struct {
	Silent    []Interval // spans detected as silence, in order
	Kept      []Interval // non-silent spans that were concatenated into the output
	AllSilent bool       // no non-silent span was found; the input was kept whole
}

// RemovedMS returns the total duration discarded
func (r TrimResult) RemovedMS() float64 {
	if r.AllSilent {
		return 0
	}
	var ms float64
	for _, iv := range r.Silent {
		ms += iv.EndMS() - iv.StartMS()
	}
	return ms
}

// TrimSilence removes every span of at least MinSilenceMS whose RMS stays at or
// below ThresholdDBFS and concatenates the remaining spans in order.
//
// Detection slides a MinSilenceMS window in SeekStepMS hops; the last window is
// always aligned to the end of the waveform. Overlapping or touching silent windows
// merge into one span. If nothing non-silent remains the input is returned unchanged
// (as a copy) with AllSilent set, so a file is never reduced to zero length.
func TrimSilence(w audio.Waveform, opts SilenceOptions) (audio.Waveform, TrimResult) {
	silent := DetectSilence(w, opts)
	kept := complement(silent, w.Len(), w.SampleRate)

	if len(kept) == 0 {
		return w.Clone(), TrimResult{Silent: silent, AllSilent: true}
	}
	if len(silent) == 0 {
		return w.Clone(), TrimResult{Kept: kept}
	}

	total := 0
	for _, iv := range kept {
		total += iv.Len()
	}
	out := make([]float64, 0, total)
	for _, iv := range kept {
		out = append(out, w.Samples[iv.Start:iv.End]...)
	}

	return audio.Waveform{Samples: out, SampleRate: w.SampleRate}, TrimResult{Silent: silent, Kept: kept}
}

// DetectSilence returns the silent spans of w without modifying it
func DetectSilence(w audio.Waveform, opts SilenceOptions) []Interval {
	n := w.Len()
	win := audio.MSToSamples(opts.MinSilenceMS, w.SampleRate)
	if win <= 0 || n < win {
		return nil
	}
	step := max(1, audio.MSToSamples(opts.SeekStepMS, w.SampleRate))

	// Prefix sums of squared samples give each window's energy in O(1)
	prefix := make([]float64, n+1)
	for i, s := range w.Samples {
		prefix[i+1] = prefix[i] + s*s
	}

	// rms <= thr  ⇔  sum(s²) <= thr² · win
	thr := DbToLinear(opts.ThresholdDBFS)
	limit := thr * thr * float64(win)

	isSilent := func(start int) bool {
		return prefix[start+win]-prefix[start] <= limit
	}

	var silent []Interval
	last := n - win
	prevStart := -1

	visit := func(start int) {
		if !isSilent(start) {
			return
		}
		if prevStart >= 0 && start <= prevStart+win && len(silent) > 0 {
			silent[len(silent)-1].End = start + win
		} else {
			silent = append(silent, Interval{Start: start, End: start + win, SampleRate: w.SampleRate})
		}
		prevStart = start
	}

	for start := 0; start <= last; start += step {
		visit(start)
	}
	if last%step != 0 {
		visit(last)
	}

	return silent
}

// complement returns the spans of [0, n) not covered by silent
func complement(silent []Interval, n, rate int) []Interval {
	var kept []Interval
	cursor := 0
	for _, iv := range silent {
		if iv.Start > cursor {
			kept = append(kept, Interval{Start: cursor, End: iv.Start, SampleRate: rate})
		}
		cursor = max(cursor, iv.End)
	}
	if cursor < n {
		kept = append(kept, Interval{Start: cursor, End: n, SampleRate: rate})
	}
	return kept
}
