package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/accentprep/internal/pipeline"
	"github.com/linuxmatters/accentprep/internal/processor"
)

var (
	accentColour = lipgloss.Color("#2E7D9A")
	okColour     = lipgloss.Color("#00AA00")
	warnColour   = lipgloss.Color("#FFA500")
	errColour    = lipgloss.Color("#A40000")
	mutedColour  = lipgloss.Color("#888888")
)

// stageLabels are the human names shown for each stage
var stageLabels = map[processor.StageID]string{
	processor.StageDecode:    "Decoding",
	processor.StageTrim:      "Trimming silence",
	processor.StageDenoise:   "Reducing noise",
	processor.StageNormalise: "Normalising loudness",
	processor.StagePersist:   "Writing",
	processor.StageSegment:   "Segmenting",
	processor.StageFeatures:  "Extracting features",
}

func stageLabel(id processor.StageID) string {
	if label, ok := stageLabels[id]; ok {
		return label
	}
	return string(id)
}

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(renderFileQueue(m))
	b.WriteString("\n")
	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColour).
		Render("Accentprep 🎙  Accent Corpus Preprocessor")

	action := "Waiting for files"
	switch m.Phase {
	case pipeline.PhaseClean:
		action = fmt.Sprintf("Cleaning %d file(s)", m.TotalFiles)
	case pipeline.PhaseExtract:
		action = fmt.Sprintf("Segmenting and extracting features from %d file(s)", m.TotalFiles)
	}
	subtitle := lipgloss.NewStyle().
		Foreground(mutedColour).
		Italic(true).
		Render(action)

	return title + "\n" + subtitle
}

// renderFileQueue renders the files around the active one; long queues are windowed
func renderFileQueue(m Model) string {
	const window = 8

	from, to := 0, len(m.Files)
	if len(m.Files) > window {
		from = max(0, m.CurrentIndex-window/2)
		to = min(len(m.Files), from+window)
		from = max(0, to-window)
	}

	var b strings.Builder
	if from > 0 {
		fmt.Fprintf(&b, "   … %d earlier\n", from)
	}
	for _, file := range m.Files[from:to] {
		b.WriteString(renderFileEntry(file, m.Phase))
		b.WriteString("\n")
	}
	if to < len(m.Files) {
		fmt.Fprintf(&b, "   … %d more\n", len(m.Files)-to)
	}
	return b.String()
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress, phase pipeline.Phase) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		icon := lipgloss.NewStyle().Foreground(okColour).Render("✓")
		if len(file.Result.Warnings) > 0 {
			icon = lipgloss.NewStyle().Foreground(warnColour).Render("⚠")
		}
		return fmt.Sprintf(" %s %s\n   %s", icon, fileName, resultSummary(file.Result, phase))

	case StatusActive:
		icon := lipgloss.NewStyle().Foreground(warnColour).Render("⚙")
		return fmt.Sprintf(" %s %s\n%s", icon, fileName, renderFileDetails(file))

	case StatusError:
		icon := lipgloss.NewStyle().Foreground(errColour).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Result.Err)

	default:
		icon := lipgloss.NewStyle().Foreground(mutedColour).Render("○")
		return fmt.Sprintf(" %s %s", icon, fileName)
	}
}

// resultSummary is the one-line outcome of a finished file
func resultSummary(r pipeline.FileResult, phase pipeline.Phase) string {
	if phase == pipeline.PhaseExtract {
		return fmt.Sprintf("%d clip(s), %d feature table(s)", r.Clips, r.Tables)
	}

	p := r.Processing
	if p == nil || p.InputMeasurements == nil || p.FinalMeasurements == nil {
		return filepath.Base(r.Output)
	}
	summary := fmt.Sprintf("%.1fs → %.1fs | %.1f → %.1f dBFS",
		p.InputMeasurements.DurationMS/1000, p.FinalMeasurements.DurationMS/1000,
		p.InputMeasurements.RMSLevel, p.FinalMeasurements.RMSLevel)
	if len(r.Warnings) > 0 {
		summary += fmt.Sprintf(" | %d warning(s)", len(r.Warnings))
	}
	return summary
}

// renderFileDetails renders detailed progress for the active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColour).
		Padding(0, 1).
		Width(60)

	var content strings.Builder
	content.WriteString(stageLabel(file.Stage))
	content.WriteString("\n")
	content.WriteString(renderProgressBar(file.Progress, 40))
	content.WriteString("\n\n")

	elapsed := file.ElapsedTime.Seconds()
	var remaining float64
	if file.Progress > 0 {
		remaining = (elapsed / file.Progress) - elapsed
	}
	fmt.Fprintf(&content, "⏱  Elapsed: %.1fs | Remaining: ~%.1fs", elapsed, remaining)

	if m := file.Measurements; m != nil {
		fmt.Fprintf(&content, "\n📊 Level: %.1f dBFS | Peak: %.1f dBFS | %.1fs",
			m.RMSLevel, m.PeakLevel, m.DurationMS/1000)
	}

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %d%%", bar, int(progress*100))
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColour).
		Padding(0, 1).
		Width(60)

	content := fmt.Sprintf("Overall Progress: %d/%d complete", m.CompletedFiles, m.TotalFiles)
	if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
		content = fmt.Sprintf("Processing file %d of %d (%d complete, %d failed)",
			m.CurrentIndex+1, m.TotalFiles, m.CompletedFiles, m.FailedFiles)
	}
	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(okColour).Render("✨ Processing Complete!")
	if m.Err != nil {
		header = lipgloss.NewStyle().Bold(true).Foreground(errColour).Render("Processing stopped: " + m.Err.Error())
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, s := range m.Summaries {
		b.WriteString(renderPhaseSummary(s))
		b.WriteString("\n")
	}

	var failed []pipeline.FileResult
	for _, s := range m.Summaries {
		for _, r := range s.Results {
			if r.Err != nil {
				failed = append(failed, r)
			}
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(errColour).Render("Failed files"))
		b.WriteString("\n")
		for _, r := range failed {
			fmt.Fprintf(&b, " ✗ %s (%s): %v\n", filepath.Base(r.Input), r.Phase, r.Err)
		}
	}

	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	return b.String()
}

// renderPhaseSummary renders the tally of one phase
func renderPhaseSummary(s *pipeline.Summary) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColour).Render(phaseTitle(s.Phase))
	line := fmt.Sprintf("%d of %d file(s) processed", s.Processed, s.Files)
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed", s.Failed)
	}
	if s.Warned > 0 {
		line += fmt.Sprintf(", %d with warnings", s.Warned)
	}
	if s.Phase == pipeline.PhaseExtract {
		line += fmt.Sprintf(" → %d clip(s), %d feature table(s)", s.Clips, s.Tables)
	}
	return fmt.Sprintf("%s  %s in %.1fs", title, line, s.Elapsed.Seconds())
}

func phaseTitle(p pipeline.Phase) string {
	switch p {
	case pipeline.PhaseClean:
		return "Clean"
	case pipeline.PhaseExtract:
		return "Extract"
	default:
		return string(p)
	}
}
