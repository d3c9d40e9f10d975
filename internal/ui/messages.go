package ui

import (
	"github.com/linuxmatters/accentprep/internal/pipeline"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// PhaseStartMsg starts a new file queue (clean or extract)
type PhaseStartMsg struct {
	Phase pipeline.Phase
	Files []string
}

// FileStartMsg indicates a new file has started processing
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// ProgressMsg represents a stage update for the current file
type ProgressMsg struct {
	Stage        processor.StageID
	Progress     float64 // 0.0 to 1.0 within the stage
	Measurements *processor.AudioMeasurements
}

// FileCompleteMsg indicates a file has finished processing
type FileCompleteMsg struct {
	Result pipeline.FileResult
}

// PhaseCompleteMsg carries the tally of a finished phase
type PhaseCompleteMsg struct {
	Summary *pipeline.Summary
}

// AllCompleteMsg indicates the run is over. Err is set when it stopped early.
type AllCompleteMsg struct {
	Err error
}
