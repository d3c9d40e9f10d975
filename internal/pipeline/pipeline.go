// Package pipeline drives the corpus batch: it walks the input directory, runs
// each recording through the cleaning chain, fans cleaned waveforms out into
// clips and persists one feature table per clip.
//
// Files are processed one at a time. A failure on one file is recorded in its
// FileResult and the batch moves on; only context cancellation, checked between
// files, stops a phase early.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/config"
	"github.com/linuxmatters/accentprep/internal/features"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// Phase names one half of a run
type Phase string

const (
	PhaseClean   Phase = "clean"
	PhaseExtract Phase = "extract"
)

// Observer receives progress events. Calls are made synchronously from the
// goroutine running the phase.
type Observer interface {
	PhaseStarted(phase Phase, files []string)
	FileStarted(phase Phase, index int, path string)
	StageChanged(phase Phase, index int, stage processor.StageID, progress float64, m *processor.AudioMeasurements)
	FileCompleted(result FileResult)
	PhaseCompleted(summary *Summary)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) PhaseStarted(Phase, []string)                                                    {}
func (NopObserver) FileStarted(Phase, int, string)                                                   {}
func (NopObserver) StageChanged(Phase, int, processor.StageID, float64, *processor.AudioMeasurements) {}
func (NopObserver) FileCompleted(FileResult)                                                         {}
func (NopObserver) PhaseCompleted(*Summary)                                                          {}

// FileResult is the outcome of one input file in one phase
type FileResult struct {
	Phase  Phase
	Index  int
	Input  string
	Output string // cleaned waveform (clean phase only)

	Clips  int // clip waveforms written (extract phase only)
	Tables int // feature tables written (extract phase only)

	Processing *processor.ProcessingResult // clean phase only
	Metadata   *audio.Metadata
	Elapsed    time.Duration

	// Warnings are non-fatal stage errors; the file was still written
	Warnings []error
	// Err is set when the file was skipped or only partly written
	Err error
}

// OK reports whether the file completed without error
func (r FileResult) OK() bool {
	return r.Err == nil
}

// Summary tallies one phase of a run
type Summary struct {
	RunID     string
	Phase     Phase
	Files     int
	Processed int
	Failed    int
	Warned    int
	Clips     int
	Tables    int
	Elapsed   time.Duration
	Results   []FileResult
}

func (s *Summary) add(r FileResult) {
	s.Results = append(s.Results, r)
	if r.Err != nil {
		s.Failed++
	} else {
		s.Processed++
	}
	if len(r.Warnings) > 0 {
		s.Warned++
	}
	s.Clips += r.Clips
	s.Tables += r.Tables
}

// Options holds the optional collaborators of a Pipeline
type Options struct {
	Observer Observer       // nil = no progress events
	Logger   *logrus.Logger // nil = logrus.StandardLogger()
	Reports  bool           // write a per-file analysis report next to each cleaned waveform
}

// Pipeline holds the resolved stage parameters for a run. It carries no
// per-file state, so one Pipeline may run Clean and Extract repeatedly.
type Pipeline struct {
	runID     string
	format    audio.Format
	label     string
	proc      *processor.Config
	extractor *features.Extractor
	segmentMS float64

	observer Observer
	log      *logrus.Entry
	reports  bool
}

// New validates cfg and resolves everything that must be decided once per run,
// including the mains hum frequency when dehum is set to auto.
func New(cfg *config.Root, opts Options) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	humHz, err := cfg.HumFrequency()
	if err != nil {
		return nil, err
	}
	extractor, err := features.NewExtractor(cfg.Audio.SampleRate, cfg.FeaturesConfig())
	if err != nil {
		return nil, err
	}

	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	runID := uuid.New().String()
	return &Pipeline{
		runID:     runID,
		format:    cfg.Format(),
		label:     cfg.Pipeline.Label,
		proc:      cfg.ProcessorConfig(humHz),
		extractor: extractor,
		segmentMS: cfg.Segment.DurationMS,
		observer:  observer,
		log:       logger.WithField("run_id", runID),
		reports:   opts.Reports,
	}, nil
}

// RunID identifies this pipeline in log output
func (p *Pipeline) RunID() string {
	return p.runID
}

// ProcessorConfig returns the cleaning parameters in effect
func (p *Pipeline) ProcessorConfig() processor.Config {
	return *p.proc
}

// Label resolves the label for a run: the explicit argument, then the configured
// label, then the name of dir.
func (p *Pipeline) Label(explicit, dir string) string {
	switch {
	case explicit != "":
		return explicit
	case p.label != "":
		return p.label
	default:
		return DefaultLabel(dir)
	}
}

// Run cleans inputDir into the workspace and then extracts clips and features
// from the cleaned files. The label defaults to the input directory name.
func (p *Pipeline) Run(ctx context.Context, inputDir string, ws Workspace, label string) (clean, extract *Summary, err error) {
	label = p.Label(label, inputDir)
	if err := ValidateLabel(label); err != nil {
		return nil, nil, err
	}

	clean, err = p.Clean(ctx, inputDir, ws.Cleaned)
	if err != nil {
		return clean, nil, err
	}
	extract, err = p.Extract(ctx, ws.Cleaned, ws.Segments, ws.Features, label)
	return clean, extract, err
}

func (p *Pipeline) newSummary(phase Phase, files int) *Summary {
	return &Summary{
		RunID:   p.runID,
		Phase:   phase,
		Files:   files,
		Results: make([]FileResult, 0, files),
	}
}

func (p *Pipeline) finish(s *Summary, start time.Time) {
	s.Elapsed = time.Since(start)
	p.log.WithFields(logrus.Fields{
		"phase":     s.Phase,
		"files":     s.Files,
		"processed": s.Processed,
		"failed":    s.Failed,
		"warned":    s.Warned,
		"clips":     s.Clips,
		"tables":    s.Tables,
		"elapsed":   s.Elapsed.Round(time.Millisecond),
	}).Info("phase complete")
	p.observer.PhaseCompleted(s)
}
