package logging

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// AnalysisResult is what analyze mode measures for one file without writing anything
type AnalysisResult struct {
	InputPath    string
	Metadata     *audio.Metadata
	Measurements *processor.AudioMeasurements
	Silence      []processor.Interval
	Config       *processor.Config
}

// DisplayAnalysisResults prints the measurements and the silence the trimmer
// would remove, plus how many clips the file would yield.
func DisplayAnalysisResults(w io.Writer, a AnalysisResult) {
	m := a.Measurements
	cfg := a.Config
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}

	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "ANALYSIS: %s\n", filepath.Base(a.InputPath))
	fmt.Fprintln(w, strings.Repeat("=", 70))

	if md := a.Metadata; md != nil {
		fmt.Fprintf(w, "Duration:    %s\n", formatDurationHMS(md.Duration))
		fmt.Fprintf(w, "Sample Rate: %d Hz\n", md.SampleRate)
		fmt.Fprintf(w, "Channels:    %s\n", channelName(md.Channels))
		fmt.Fprintf(w, "Codec:       %s\n", md.Codec)
		fmt.Fprintln(w)
	}
	if m == nil {
		return
	}

	writeAnalysisSection(w, "LEVELS")
	fmt.Fprintf(w, "  RMS Level:      %s dBFS\n", formatMetricDB(m.RMSLevel, 1))
	fmt.Fprintf(w, "  Peak Level:     %s dBFS\n", formatMetricDB(m.PeakLevel, 1))
	fmt.Fprintf(w, "  Quietest 10%%:   %s dBFS\n", formatMetricDB(m.RMSTrough, 1))
	fmt.Fprintf(w, "  Dynamic Range:  %s dB\n", formatMetric(m.DynamicRange, 1))
	if !math.IsInf(m.RMSLevel, -1) {
		fmt.Fprintf(w, "  Gain to target: %s dB\n", formatMetricSigned(cfg.TargetDBFS-m.RMSLevel, 1))
	}
	fmt.Fprintln(w)

	writeAnalysisSection(w, "SILENCE DETECTION")
	fmt.Fprintf(w, "  Threshold:      %.1f dBFS, minimum %.0f ms\n", cfg.SilenceThresholdDBFS, cfg.MinSilenceMS)

	var silentMS float64
	for _, iv := range a.Silence {
		silentMS += iv.EndMS() - iv.StartMS()
	}
	keptMS := m.DurationMS - silentMS
	allSilent := len(a.Silence) > 0 && keptMS <= 0

	if len(a.Silence) == 0 {
		fmt.Fprintln(w, "  No silence found")
	} else {
		fmt.Fprintf(w, "  Spans:          %d (%s)\n", len(a.Silence), formatDurationHMS(silentMS/1000))
		for i, iv := range a.Silence {
			if i == maxListedIntervals {
				fmt.Fprintf(w, "    ... and %d more\n", len(a.Silence)-maxListedIntervals)
				break
			}
			fmt.Fprintf(w, "    %s - %s\n", formatTimestamp(iv.StartMS()), formatTimestamp(iv.EndMS()))
		}
	}
	fmt.Fprintln(w)

	writeAnalysisSection(w, "SEGMENTATION")
	if allSilent {
		fmt.Fprintln(w, "  Entire file is below the threshold; it would be kept whole")
		keptMS = m.DurationMS
	}
	clipMS := cfg.SegmentMS
	clips := 0
	if clipMS > 0 && keptMS > 0 {
		clips = int(math.Ceil(keptMS / clipMS))
	}
	fmt.Fprintf(w, "  After trimming: %s\n", formatDurationHMS(keptMS/1000))
	fmt.Fprintf(w, "  Clips:          ~%d of %.1fs\n", clips, clipMS/1000)
	fmt.Fprintln(w)
}

func writeAnalysisSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// formatDurationHMS formats seconds as HH:MM:SS.s, dropping hours when zero
func formatDurationHMS(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	h := int(seconds / 3600)
	m := int(math.Mod(seconds, 3600) / 60)
	s := math.Mod(seconds, 60)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%04.1f", h, m, s)
	}
	return fmt.Sprintf("%d:%04.1f", m, s)
}
