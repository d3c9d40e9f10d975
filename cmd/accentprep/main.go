package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/cli"
	"github.com/linuxmatters/accentprep/internal/config"
	"github.com/linuxmatters/accentprep/internal/logging"
	"github.com/linuxmatters/accentprep/internal/pipeline"
	"github.com/linuxmatters/accentprep/internal/processor"
	"github.com/linuxmatters/accentprep/internal/ui"
)

var (
	version = "0.0.1"
)

// errFilesFailed makes the process exit non-zero after the summary was printed
var errFilesFailed = errors.New("one or more files failed")

// versionFlag prints the styled version and exits before commands are validated
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong) error {
	cli.PrintVersion(version)
	app.Exit(0)
	return nil
}

// CLI defines the command-line interface
type CLI struct {
	Version versionFlag `short:"v" help:"Show version information"`
	Config  string      `short:"c" type:"existingfile" help:"Path to YAML config file (optional)"`
	Plain   bool        `help:"Log to the terminal instead of showing the interactive UI"`
	Logs    bool        `help:"Save a detailed analysis report next to each cleaned file"`

	config.Overrides `embed:""`

	Clean   CleanCmd   `cmd:"" help:"Normalise, trim, denoise and level every recording in a directory"`
	Extract ExtractCmd `cmd:"" help:"Cut cleaned recordings into clips and write MFCC tables"`
	Run     RunCmd     `cmd:"" help:"Clean a directory and extract clips and features in one go"`
	Analyze AnalyzeCmd `cmd:"" help:"Measure recordings without writing anything"`
}

// CleanCmd runs the cleaning phase
type CleanCmd struct {
	Input   string `arg:"" type:"existingdir" help:"Directory of raw recordings"`
	Cleaned string `arg:"" type:"path" help:"Directory for cleaned WAV files"`
}

// ExtractCmd runs the segmentation and feature phase
type ExtractCmd struct {
	Cleaned  string `arg:"" type:"existingdir" help:"Directory of cleaned WAV files"`
	Segments string `required:"" type:"path" help:"Root directory for clip WAV files"`
	Features string `required:"" type:"path" help:"Root directory for MFCC tables"`
	Label    string `help:"Accent label (defaults to the config label, then the cleaned directory name)"`
}

// RunCmd runs both phases into one workspace
type RunCmd struct {
	Input string `arg:"" type:"existingdir" help:"Directory of raw recordings"`
	Work  string `short:"w" required:"" type:"path" help:"Workspace root (cleaned/, segments/ and features/ are created inside)"`
	Label string `help:"Accent label (defaults to the config label, then the input directory name)"`
}

// AnalyzeCmd measures files without processing them
type AnalyzeCmd struct {
	Files []string `arg:"" type:"existingfile" help:"Audio files to analyse"`
}

// app is the state shared by every command
type app struct {
	cfg   *config.Root
	plain bool
	logs  bool
}

func main() {
	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("accentprep"),
		kong.Description(cli.AppDescription),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	cfg, err := config.Load(cliArgs.Config)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	cfg.Apply(cliArgs.Overrides)
	if err := cfg.Validate(); err != nil {
		cli.PrintError(fmt.Sprintf("Invalid configuration: %v", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, plain: cliArgs.Plain, logs: cliArgs.Logs}
	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(a)
	stop()
	if err != nil {
		if !errors.Is(err, errFilesFailed) {
			cli.PrintError(err.Error())
		}
		os.Exit(1)
	}
}

// Run cleans the input directory
func (c *CleanCmd) Run(ctx context.Context, a *app) error {
	return a.execute(ctx, func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Summary, error) {
		s, err := p.Clean(ctx, c.Input, c.Cleaned)
		return collect(s), err
	})
}

// Run extracts clips and features from the cleaned directory
func (c *ExtractCmd) Run(ctx context.Context, a *app) error {
	return a.execute(ctx, func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Summary, error) {
		s, err := p.Extract(ctx, c.Cleaned, c.Segments, c.Features, c.Label)
		return collect(s), err
	})
}

// Run cleans and extracts into the workspace
func (c *RunCmd) Run(ctx context.Context, a *app) error {
	ws := pipeline.NewWorkspace(c.Work)
	return a.execute(ctx, func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Summary, error) {
		clean, extract, err := p.Run(ctx, c.Input, ws, c.Label)
		return collect(clean, extract), err
	})
}

// phaseFunc runs one or both phases with a ready pipeline
type phaseFunc func(ctx context.Context, p *pipeline.Pipeline) ([]*pipeline.Summary, error)

// execute builds the pipeline and runs fn, either behind the TUI or with plain
// log output, then prints the summaries.
func (a *app) execute(ctx context.Context, fn phaseFunc) error {
	var (
		summaries []*pipeline.Summary
		err       error
	)
	if a.plain {
		summaries, err = a.executePlain(ctx, fn)
	} else {
		summaries, err = a.executeTUI(ctx, fn)
	}

	printSummaries(summaries)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		if s.Failed > 0 {
			return errFilesFailed
		}
	}
	return nil
}

func (a *app) executePlain(ctx context.Context, fn phaseFunc) ([]*pipeline.Summary, error) {
	logger, err := logging.NewLogger(os.Stderr, a.cfg.Pipeline.LogLevel)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(a.cfg, pipeline.Options{Logger: logger, Reports: a.logs})
	if err != nil {
		return nil, err
	}
	return fn(ctx, p)
}

func (a *app) executeTUI(ctx context.Context, fn phaseFunc) ([]*pipeline.Summary, error) {
	// The TUI owns the terminal, so log output goes to the debug log
	var out io.Writer = io.Discard
	if debugLog, err := logging.OpenDebugLog(); err == nil {
		defer debugLog.Close()
		out = debugLog
	}
	logger, err := logging.NewLogger(out, a.cfg.Pipeline.LogLevel)
	if err != nil {
		return nil, err
	}

	prog := tea.NewProgram(ui.NewModel(logger.WithField("component", "ui")), tea.WithAltScreen())
	p, err := pipeline.New(a.cfg, pipeline.Options{
		Logger:   logger,
		Reports:  a.logs,
		Observer: &progressHandler{p: prog, log: logger},
	})
	if err != nil {
		return nil, err
	}

	// Quitting the UI cancels the run; the file in flight still completes
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		summaries []*pipeline.Summary
		err       error
	}
	done := make(chan outcome, 1)
	go func() {
		summaries, err := fn(ctx, p)
		logger.Debug("sending AllCompleteMsg")
		prog.Send(ui.AllCompleteMsg{Err: err})
		done <- outcome{summaries, err}
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("UI error: %w", err)
	}
	cancel()
	res := <-done
	return res.summaries, res.err
}

// progressHandler forwards pipeline events to the TUI
type progressHandler struct {
	p   *tea.Program
	log logrus.FieldLogger
}

func (h *progressHandler) PhaseStarted(phase pipeline.Phase, files []string) {
	h.log.WithFields(logrus.Fields{"phase": phase, "files": len(files)}).Debug("sending PhaseStartMsg")
	h.p.Send(ui.PhaseStartMsg{Phase: phase, Files: files})
}

func (h *progressHandler) FileStarted(_ pipeline.Phase, index int, path string) {
	h.log.WithFields(logrus.Fields{"index": index, "file": path}).Debug("sending FileStartMsg")
	h.p.Send(ui.FileStartMsg{FileIndex: index, FileName: path})
}

func (h *progressHandler) StageChanged(_ pipeline.Phase, _ int, stage processor.StageID, progress float64, m *processor.AudioMeasurements) {
	h.p.Send(ui.ProgressMsg{Stage: stage, Progress: progress, Measurements: m})
}

func (h *progressHandler) FileCompleted(result pipeline.FileResult) {
	h.log.WithField("index", result.Index).Debug("sending FileCompleteMsg")
	h.p.Send(ui.FileCompleteMsg{Result: result})
}

func (h *progressHandler) PhaseCompleted(summary *pipeline.Summary) {
	h.p.Send(ui.PhaseCompleteMsg{Summary: summary})
}

// Run decodes and measures each file, then prints the analysis
func (c *AnalyzeCmd) Run(ctx context.Context, a *app) error {
	proc := a.cfg.ProcessorConfig(0)
	format := a.cfg.Format()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var prog *tea.Program
	if !a.plain {
		prog = tea.NewProgram(ui.NewAnalysisModel(), tea.WithAltScreen())
	}
	send := func(msg tea.Msg) {
		if prog != nil {
			prog.Send(msg)
		}
	}

	results := make([]logging.AnalysisResult, 0, len(c.Files))
	var failed []error
	analyse := func() {
		defer send(ui.AnalysisCompleteMsg{})
		for i, path := range c.Files {
			if ctx.Err() != nil {
				return
			}
			send(ui.AnalysisStartMsg{FilePath: path, FileIndex: i, TotalFiles: len(c.Files)})

			w, md, err := audio.Load(context.WithoutCancel(ctx), path, format)
			if err != nil {
				failed = append(failed, err)
				continue
			}
			send(ui.AnalysisProgressMsg{Stage: processor.StageTrim})
			result := logging.AnalysisResult{
				InputPath:    path,
				Metadata:     md,
				Measurements: processor.AnalyzeAudio(w),
				Silence:      processor.DetectSilence(w, proc.SilenceOptions()),
				Config:       proc,
			}
			if prog == nil {
				logging.DisplayAnalysisResults(os.Stdout, result)
				continue
			}
			results = append(results, result)
		}
	}

	if prog == nil {
		analyse()
	} else {
		done := make(chan struct{})
		go func() {
			analyse()
			close(done)
		}()
		_, err := prog.Run()
		cancel()
		<-done
		if err != nil {
			return fmt.Errorf("UI error: %w", err)
		}
		for _, r := range results {
			logging.DisplayAnalysisResults(os.Stdout, r)
		}
	}

	for _, err := range failed {
		cli.PrintError(err.Error())
	}
	if len(failed) > 0 {
		return errFilesFailed
	}
	return nil
}

func collect(summaries ...*pipeline.Summary) []*pipeline.Summary {
	var out []*pipeline.Summary
	for _, s := range summaries {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// printSummaries writes the per-phase tallies and any failed files to the terminal
func printSummaries(summaries []*pipeline.Summary) {
	for _, s := range summaries {
		fmt.Println()
		fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("%s phase", s.Phase)))
		cli.PrintKeyValue("Run", s.RunID)
		cli.PrintKeyValue("Files", s.Files)
		cli.PrintKeyValue("Processed", s.Processed)
		cli.PrintKeyValue("Failed", s.Failed)
		cli.PrintKeyValue("Warnings", s.Warned)
		if s.Phase == pipeline.PhaseExtract {
			cli.PrintKeyValue("Clips", s.Clips)
			cli.PrintKeyValue("Tables", s.Tables)
		}
		cli.PrintKeyValue("Elapsed", s.Elapsed.Round(time.Millisecond))

		for _, r := range s.Results {
			if r.Err != nil {
				cli.PrintError(fmt.Sprintf("%s: %v", filepath.Base(r.Input), r.Err))
			}
			for _, w := range r.Warnings {
				cli.PrintWarning(fmt.Sprintf("%s: %v", filepath.Base(r.Input), w))
			}
		}
	}
}
