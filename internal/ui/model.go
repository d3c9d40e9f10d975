// Package ui provides the Bubbletea terminal user interface for accentprep
package ui

import (
	"fmt"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/accentprep/internal/pipeline"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusActive
	StatusComplete
	StatusError
)

// phaseStages lists the stages reported for each phase, in order, so a stage
// update can be turned into whole-file progress
var phaseStages = map[pipeline.Phase][]processor.StageID{
	pipeline.PhaseClean: {
		processor.StageDecode,
		processor.StageTrim,
		processor.StageDenoise,
		processor.StageNormalise,
		processor.StagePersist,
	},
	pipeline.PhaseExtract: {
		processor.StageDecode,
		processor.StageSegment,
		processor.StageFeatures,
	},
}

// FileProgress tracks progress for a single audio file
type FileProgress struct {
	InputPath string
	Status    FileStatus

	Stage       processor.StageID
	Progress    float64 // whole-file progress, 0.0 to 1.0
	StartTime   time.Time
	ElapsedTime time.Duration

	// Latest measurements reported by a finished stage
	Measurements *processor.AudioMeasurements

	Result pipeline.FileResult
}

// Model is the Bubbletea model for the processing UI
type Model struct {
	// Current file queue
	Phase          pipeline.Phase
	Files          []FileProgress
	CurrentIndex   int
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int

	// Tallies of finished phases
	Summaries []*pipeline.Summary

	// Global state
	StartTime time.Time
	Done      bool
	Err       error

	// Terminal dimensions
	Width  int
	Height int

	log logrus.FieldLogger
}

// NewModel creates an empty model; the first PhaseStartMsg fills the queue.
// log receives debug traces of every message and may be nil.
func NewModel(log logrus.FieldLogger) Model {
	if log == nil {
		discard := logrus.New()
		discard.SetLevel(logrus.PanicLevel)
		log = discard
	}
	return Model{
		CurrentIndex: -1,
		StartTime:    time.Now(),
		log:          log,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case PhaseStartMsg:
		m.log.Debugf("[UI] PhaseStartMsg: %s, %d file(s)", msg.Phase, len(msg.Files))
		m.Phase = msg.Phase
		m.Files = make([]FileProgress, len(msg.Files))
		for i, path := range msg.Files {
			m.Files[i] = FileProgress{InputPath: path, Status: StatusQueued}
		}
		m.CurrentIndex = -1
		m.TotalFiles = len(msg.Files)
		m.CompletedFiles = 0
		m.FailedFiles = 0

	case FileStartMsg:
		m.log.Debugf("[UI] FileStartMsg: index=%d, file=%s", msg.FileIndex, msg.FileName)
		if msg.FileIndex >= 0 && msg.FileIndex < len(m.Files) {
			m.CurrentIndex = msg.FileIndex
			m.Files[m.CurrentIndex].Status = StatusActive
			m.Files[m.CurrentIndex].StartTime = time.Now()
		}

	case ProgressMsg:
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			m.Files[m.CurrentIndex] = updateFileProgress(m.Files[m.CurrentIndex], m.Phase, msg)
		}

	case FileCompleteMsg:
		i := msg.Result.Index
		m.log.Debugf("[UI] FileCompleteMsg: index=%d, err=%v", i, msg.Result.Err)
		if i >= 0 && i < len(m.Files) {
			fp := &m.Files[i]
			fp.Result = msg.Result
			fp.ElapsedTime = msg.Result.Elapsed
			if msg.Result.Err != nil {
				fp.Status = StatusError
				m.FailedFiles++
			} else {
				fp.Status = StatusComplete
				fp.Progress = 1.0
				m.CompletedFiles++
			}
		}

	case PhaseCompleteMsg:
		m.log.Debugf("[UI] PhaseCompleteMsg: %s", msg.Summary.Phase)
		m.Summaries = append(m.Summaries, msg.Summary)

	case AllCompleteMsg:
		m.log.Debug("[UI] AllCompleteMsg")
		m.Done = true
		m.Err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}
	if m.Done {
		return renderCompletionSummary(m)
	}
	return renderProcessingView(m)
}

// updateFileProgress folds a stage update into whole-file progress
func updateFileProgress(fp FileProgress, phase pipeline.Phase, msg ProgressMsg) FileProgress {
	fp.Stage = msg.Stage
	fp.ElapsedTime = time.Since(fp.StartTime)
	if msg.Measurements != nil {
		fp.Measurements = msg.Measurements
	}

	stages := phaseStages[phase]
	if i := slices.Index(stages, msg.Stage); i >= 0 {
		fp.Progress = (float64(i) + msg.Progress) / float64(len(stages))
	}
	return fp
}
