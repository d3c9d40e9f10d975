package logging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linuxmatters/accentprep/internal/processor"
)

// RecordingTip is one piece of advice about a source recording, derived from
// what the cleaning stages measured and did to it.
type RecordingTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "level_too_quiet")
}

// MaxRecordingTips is the maximum number of tips to return.
const MaxRecordingTips = 5

// Level thresholds for the tip rules
const (
	tipQuietRMS             = -45.0 // input RMS below this needs a lot of gain
	tipClippingPeak         = -0.1  // input peak at or above this has probably clipped
	tipNoisyFloor           = -45.0 // quiet windows louder than this mean audible background noise
	tipMostlySilentFraction = 0.5   // fraction of the recording removed as silence
	tipLowDynamicRangeDB    = 10.0  // dB between speech and the quiet floor after cleaning
)

type tipRule func(r *processor.ProcessingResult, cfg *processor.Config) *RecordingTip

// GenerateRecordingTips returns prioritised advice for a processed file
func GenerateRecordingTips(r *processor.ProcessingResult, cfg *processor.Config) []RecordingTip {
	if r == nil || r.InputMeasurements == nil {
		return nil
	}
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}

	rules := []tipRule{
		tipAllSilent,
		tipLevelClipping,
		tipLevelTooQuiet,
		tipBackgroundNoise,
		tipMostlySilent,
		tipShortRecording,
		tipOutputClipping,
		tipLowDynamicRange,
	}

	var tips []RecordingTip
	fired := make(map[string]bool)
	for _, rule := range rules {
		if tip := rule(r, cfg); tip != nil {
			tips = append(tips, *tip)
			fired[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, fired)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})
	if len(tips) > MaxRecordingTips {
		tips = tips[:MaxRecordingTips]
	}
	return tips
}

// applyExclusions drops tips made redundant by a more specific one that fired.
// An all-silent recording makes every level tip meaningless.
func applyExclusions(tips []RecordingTip, fired map[string]bool) []RecordingTip {
	var result []RecordingTip
	for _, tip := range tips {
		switch tip.RuleID {
		case "level_too_quiet", "background_noise", "mostly_silent", "low_dynamic_range":
			if fired["all_silent"] {
				continue
			}
		case "output_clipping":
			if fired["level_clipping"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// wrapText wraps text at word boundaries to fit within maxWidth columns.
// Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= maxWidth:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"+indent)
}

func tipAllSilent(r *processor.ProcessingResult, cfg *processor.Config) *RecordingTip {
	if !r.Trim.AllSilent {
		return nil
	}
	return &RecordingTip{
		Priority: 10,
		RuleID:   "all_silent",
		Message: fmt.Sprintf("Nothing in this recording rises above %.0f dBFS, so it was kept whole. Check that it contains speech before training on it.",
			cfg.SilenceThresholdDBFS),
	}
}

func tipLevelClipping(r *processor.ProcessingResult, _ *processor.Config) *RecordingTip {
	if r.InputMeasurements.PeakLevel < tipClippingPeak {
		return nil
	}
	return &RecordingTip{
		Priority: 9,
		RuleID:   "level_clipping",
		Message:  "The source peaks at full scale and has probably clipped. Distortion survives cleaning, so prefer a quieter copy if one exists.",
	}
}

func tipLevelTooQuiet(r *processor.ProcessingResult, _ *processor.Config) *RecordingTip {
	rms := r.InputMeasurements.RMSLevel
	if rms >= tipQuietRMS {
		return nil
	}
	return &RecordingTip{
		Priority: 7,
		RuleID:   "level_too_quiet",
		Message:  fmt.Sprintf("The source is very quiet (%.0f dBFS RMS). Normalisation raises the noise along with the voice.", rms),
	}
}

func tipBackgroundNoise(r *processor.ProcessingResult, _ *processor.Config) *RecordingTip {
	floor := r.InputMeasurements.RMSTrough
	if floor <= tipNoisyFloor {
		return nil
	}
	return &RecordingTip{
		Priority: 8,
		RuleID:   "background_noise",
		Message:  fmt.Sprintf("Background noise is high (%.0f dBFS in the quietest passages). Consider a higher noise strength or dropping the file.", floor),
	}
}

func tipMostlySilent(r *processor.ProcessingResult, _ *processor.Config) *RecordingTip {
	in := r.InputMeasurements.DurationMS
	if in <= 0 || r.Trim.AllSilent {
		return nil
	}
	removed := r.Trim.RemovedMS() / in
	if removed < tipMostlySilentFraction {
		return nil
	}
	return &RecordingTip{
		Priority: 5,
		RuleID:   "mostly_silent",
		Message:  fmt.Sprintf("%.0f%% of the recording was silence. Check the silence threshold suits this source.", removed*100),
	}
}

func tipShortRecording(r *processor.ProcessingResult, cfg *processor.Config) *RecordingTip {
	if r.FinalMeasurements == nil || r.FinalMeasurements.DurationMS >= cfg.SegmentMS {
		return nil
	}
	return &RecordingTip{
		Priority: 4,
		RuleID:   "short_recording",
		Message: fmt.Sprintf("After trimming only %.1fs remains, shorter than one %.1fs segment; it yields a single short clip.",
			r.FinalMeasurements.DurationMS/1000, cfg.SegmentMS/1000),
	}
}

func tipOutputClipping(r *processor.ProcessingResult, _ *processor.Config) *RecordingTip {
	n := r.Normalisation
	if n == nil || n.ClippedSamples == 0 {
		return nil
	}
	return &RecordingTip{
		Priority: 6,
		RuleID:   "output_clipping",
		Message:  fmt.Sprintf("Normalisation pushed %d sample(s) past full scale. A lower loudness target avoids clipping in the written file.", n.ClippedSamples),
	}
}

func tipLowDynamicRange(r *processor.ProcessingResult, _ *processor.Config) *RecordingTip {
	m := r.FinalMeasurements
	if m == nil || m.DynamicRange == 0 || m.DynamicRange >= tipLowDynamicRangeDB {
		return nil
	}
	return &RecordingTip{
		Priority: 3,
		RuleID:   "low_dynamic_range",
		Message:  fmt.Sprintf("Speech sits only %.0f dB above the quiet floor after cleaning. Features from this file may be noise-dominated.", m.DynamicRange),
	}
}
