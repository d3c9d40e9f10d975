package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// ReportSuffix replaces the extension of the cleaned file to name its report
const ReportSuffix = ".report.txt"

// maxListedIntervals caps the silence intervals printed in a report
const maxListedIntervals = 20

// ReportData contains everything needed to write an analysis report for one file
type ReportData struct {
	RunID      string
	InputPath  string
	OutputPath string
	StartTime  time.Time
	EndTime    time.Time
	StageTimes map[processor.StageID]time.Duration
	Result     *processor.ProcessingResult
	Config     *processor.Config
	Metadata   *audio.Metadata
}

// reportStages is the order stage timings are listed in
var reportStages = []processor.StageID{
	processor.StageDecode,
	processor.StageTrim,
	processor.StageDenoise,
	processor.StageNormalise,
	processor.StagePersist,
}

// ReportPath returns the report file name for a cleaned output: talk.wav → talk.report.txt
func ReportPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ReportSuffix
}

// GenerateReport writes the analysis report next to the cleaned output and
// returns its path.
func GenerateReport(data ReportData) (string, error) {
	path := ReportPath(data.OutputPath)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteReport(f, data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return path, nil
}

// WriteReport renders the report sections:
//  1. header with source format
//  2. stage timings
//  3. silence trimming, noise reduction and normalisation details
//  4. level comparison table (Input/Trimmed/Denoised/Final)
//  5. warnings and recording tips
func WriteReport(w io.Writer, data ReportData) error {
	var b strings.Builder

	writeReportHeader(&b, data)
	writeProcessingSummary(&b, data)

	if r := data.Result; r != nil {
		cfg := data.Config
		if cfg == nil {
			cfg = processor.DefaultConfig()
		}
		writeTrimSection(&b, r.Trim, cfg)
		writeNoiseSection(&b, cfg)
		writeNormalisationSection(&b, r.Normalisation)
		writeLevelTable(&b, r)
		writeWarnings(&b, r.Warnings)
		writeTips(&b, GenerateRecordingTips(r, cfg))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeSection(b *strings.Builder, title string) {
	fmt.Fprintln(b, title)
	fmt.Fprintln(b, strings.Repeat("-", len(title)))
}

func writeReportHeader(b *strings.Builder, data ReportData) {
	fmt.Fprintln(b, "Accentprep Analysis Report")
	fmt.Fprintln(b, "==========================")
	fmt.Fprintf(b, "File:      %s\n", filepath.Base(data.InputPath))
	fmt.Fprintf(b, "Output:    %s\n", filepath.Base(data.OutputPath))
	if data.RunID != "" {
		fmt.Fprintf(b, "Run:       %s\n", data.RunID)
	}
	fmt.Fprintf(b, "Processed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	if m := data.Metadata; m != nil {
		fmt.Fprintf(b, "Source:    %s, %d Hz, %s, %s\n",
			m.Codec, m.SampleRate, channelName(m.Channels),
			formatDuration(time.Duration(m.Duration*float64(time.Second))))
	}
	fmt.Fprintln(b)
}

func writeProcessingSummary(b *strings.Builder, data ReportData) {
	writeSection(b, "Processing Summary")

	for _, stage := range reportStages {
		d, ok := data.StageTimes[stage]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "%-10s %s\n", string(stage)+":", formatDuration(d))
	}

	total := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(b, "%-10s %s", "Total:", formatDuration(total))
	if m := data.Metadata; m != nil && m.Duration > 0 && total > 0 {
		audioDuration := time.Duration(m.Duration * float64(time.Second))
		fmt.Fprintf(b, " (%.0fx real-time)", float64(audioDuration)/float64(total))
	}
	fmt.Fprintln(b)
	fmt.Fprintln(b)
}

func writeTrimSection(b *strings.Builder, trim processor.TrimResult, cfg *processor.Config) {
	writeSection(b, "Silence Trimming")
	fmt.Fprintf(b, "Threshold:    %.1f dBFS over %.0f ms windows (step %.0f ms)\n",
		cfg.SilenceThresholdDBFS, cfg.MinSilenceMS, cfg.SeekStepMS)

	switch {
	case trim.AllSilent:
		fmt.Fprintln(b, "Result:       ⚠ no audio above threshold, recording kept unchanged")
	case len(trim.Silent) == 0:
		fmt.Fprintln(b, "Result:       no silence found")
	default:
		fmt.Fprintf(b, "Result:       %d span(s) removed, %s total\n",
			len(trim.Silent), formatDuration(time.Duration(trim.RemovedMS()*float64(time.Millisecond))))
		for i, iv := range trim.Silent {
			if i == maxListedIntervals {
				fmt.Fprintf(b, "  ... and %d more\n", len(trim.Silent)-maxListedIntervals)
				break
			}
			fmt.Fprintf(b, "  %s - %s\n", formatTimestamp(iv.StartMS()), formatTimestamp(iv.EndMS()))
		}
	}
	fmt.Fprintln(b)
}

func writeNoiseSection(b *strings.Builder, cfg *processor.Config) {
	writeSection(b, "Noise Reduction")
	fmt.Fprintf(b, "Strength:     %.0f%%\n", cfg.NoiseStrength*100)
	fmt.Fprintf(b, "Profile:      mean + %.1f std per bin, %d-point FFT\n", cfg.NoiseStdThreshold, cfg.NoiseFFTSize)
	fmt.Fprintf(b, "Smoothing:    %s across frequency, %s across time\n",
		formatMetricWithUnit(cfg.NoiseFreqSmoothHz, 0, "Hz"), formatMetricWithUnit(cfg.NoiseTimeSmoothMS, 0, "ms"))
	if cfg.HumFrequency > 0 {
		fmt.Fprintf(b, "Hum notch:    %.0f Hz, %d harmonic(s), ±%.0f Hz\n",
			cfg.HumFrequency, cfg.HumHarmonics, cfg.HumWidthHz)
	} else {
		fmt.Fprintln(b, "Hum notch:    off")
	}
	fmt.Fprintln(b)
}

func writeNormalisationSection(b *strings.Builder, n *processor.NormalisationResult) {
	writeSection(b, "Loudness Normalisation")
	if n == nil {
		fmt.Fprintln(b, "Status: NOT RUN")
		fmt.Fprintln(b)
		return
	}
	if n.Skipped {
		fmt.Fprintln(b, "Status: SKIPPED (no signal)")
		fmt.Fprintln(b)
		return
	}

	fmt.Fprintf(b, "Target:       %.1f dBFS\n", n.TargetDBFS)
	fmt.Fprintf(b, "Input:        %s dBFS\n", formatMetricDB(n.InputDBFS, 1))
	fmt.Fprintf(b, "Gain:         %s dB\n", formatMetricSigned(n.GainDB, 2))
	fmt.Fprintf(b, "Output:       %s dBFS\n", formatMetricDB(n.OutputDBFS, 1))
	if n.ClippedSamples > 0 {
		fmt.Fprintf(b, "Result: ⚠ %d sample(s) exceed full scale and will clip when written\n", n.ClippedSamples)
	} else {
		fmt.Fprintf(b, "Result: ✓ within %.2f dB of target\n", math.Abs(n.OutputDBFS-n.TargetDBFS))
	}
	fmt.Fprintln(b)
}

func writeLevelTable(b *strings.Builder, r *processor.ProcessingResult) {
	writeSection(b, "Level Measurements")

	stages := []*processor.AudioMeasurements{
		r.InputMeasurements,
		r.TrimmedMeasurements,
		r.DenoisedMeasurements,
		r.FinalMeasurements,
	}
	pick := func(f func(*processor.AudioMeasurements) float64) []float64 {
		values := make([]float64, len(stages))
		for i, m := range stages {
			if m == nil {
				values[i] = math.NaN()
				continue
			}
			values[i] = f(m)
		}
		return values
	}

	table := NewMetricTable()
	table.AddMetricRow("Duration", pick(func(m *processor.AudioMeasurements) float64 {
		return m.DurationMS / 1000
	}), 2, "s", "")
	table.AddLevelRow("RMS Level", pick(func(m *processor.AudioMeasurements) float64 {
		return m.RMSLevel
	}), "")
	table.AddLevelRow("Peak Level", pick(func(m *processor.AudioMeasurements) float64 {
		return m.PeakLevel
	}), "")
	table.AddLevelRow("Quietest 10%", pick(func(m *processor.AudioMeasurements) float64 {
		return m.RMSTrough
	}), "noise floor estimate")
	table.AddMetricRow("Dynamic Range", pick(func(m *processor.AudioMeasurements) float64 {
		return m.DynamicRange
	}), 1, "dB", interpretDynamicRange(r.FinalMeasurements))

	b.WriteString(table.String())
	fmt.Fprintln(b)
}

// interpretDynamicRange describes the gap between speech level and the quiet floor
func interpretDynamicRange(m *processor.AudioMeasurements) string {
	if m == nil || m.DynamicRange == 0 {
		return ""
	}
	switch {
	case m.DynamicRange < 10:
		return "noise-dominated"
	case m.DynamicRange < 25:
		return "usable"
	default:
		return "clean"
	}
}

func writeWarnings(b *strings.Builder, warnings []error) {
	if len(warnings) == 0 {
		return
	}
	writeSection(b, "Warnings")
	for _, w := range warnings {
		fmt.Fprintf(b, "⚠ %v\n", w)
	}
	fmt.Fprintln(b)
}

func writeTips(b *strings.Builder, tips []RecordingTip) {
	if len(tips) == 0 {
		return
	}
	writeSection(b, "Recording Tips")
	for _, tip := range tips {
		fmt.Fprintf(b, "• %s\n", wrapText(tip.Message, 76, "  "))
	}
	fmt.Fprintln(b)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", minutes/60, minutes%60, seconds)
}

// formatTimestamp formats a position in milliseconds as MM:SS.mmm
func formatTimestamp(ms float64) string {
	d := time.Duration(ms * float64(time.Millisecond)).Round(time.Millisecond)
	m := d / time.Minute
	s := (d % time.Minute).Seconds()
	return fmt.Sprintf("%02d:%06.3f", int(m), s)
}

// channelName returns a human-readable channel name
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
