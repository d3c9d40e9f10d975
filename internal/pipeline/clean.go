package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/logging"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// Clean runs every recording in inputDir through decode, silence trim, noise
// reduction and loudness normalisation, writing cleanedDir/<stem>.wav for each.
//
// A listing or output-directory failure aborts before any file is touched. After
// that, per-file errors are recorded in the summary and the batch continues.
func (p *Pipeline) Clean(ctx context.Context, inputDir, cleanedDir string) (*Summary, error) {
	start := time.Now()

	files, err := ListAudioFiles(inputDir)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(cleanedDir); err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"phase":  PhaseClean,
		"input":  inputDir,
		"output": cleanedDir,
		"files":  len(files),
	}).Info("phase started")

	summary := p.newSummary(PhaseClean, len(files))
	p.observer.PhaseStarted(PhaseClean, files)

	written := make(map[string]string, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			p.finish(summary, start)
			return summary, err
		}

		p.observer.FileStarted(PhaseClean, i, path)
		result := p.cleanFile(ctx, i, path, cleanedDir, written)
		summary.add(result)
		p.observer.FileCompleted(result)
	}

	p.finish(summary, start)
	return summary, nil
}

func (p *Pipeline) cleanFile(ctx context.Context, index int, path, cleanedDir string, written map[string]string) FileResult {
	start := time.Now()
	result := FileResult{Phase: PhaseClean, Index: index, Input: path}
	log := p.log.WithFields(logrus.Fields{
		"phase": PhaseClean,
		"file":  filepath.Base(path),
	})

	fail := func(err error, msg string) FileResult {
		result.Err = err
		result.Elapsed = time.Since(start)
		log.WithError(err).Error(msg)
		return result
	}

	output := CleanedPath(cleanedDir, path)
	if prev, ok := written[output]; ok {
		return fail(fmt.Errorf("%s: %w", filepath.Base(prev), ErrDuplicateStem), "skipping input")
	}

	stageStart := make(map[processor.StageID]time.Time)
	stageTimes := make(map[processor.StageID]time.Duration)
	stage := func(id processor.StageID, progress float64, m *processor.AudioMeasurements) {
		switch progress {
		case 0.0:
			stageStart[id] = time.Now()
		case 1.0:
			stageTimes[id] = time.Since(stageStart[id])
		}
		log.WithFields(logrus.Fields{"stage": id, "progress": progress}).Debug("stage update")
		p.observer.StageChanged(PhaseClean, index, id, progress, m)
	}

	// Cancellation is only honoured between files, so the decoder gets a context
	// that outlives it.
	stage(processor.StageDecode, 0.0, nil)
	w, meta, err := audio.Load(context.WithoutCancel(ctx), path, p.format)
	if err != nil {
		return fail(err, "failed to decode")
	}
	result.Metadata = meta
	stage(processor.StageDecode, 1.0, nil)

	processed, err := processor.ProcessAudio(w, p.proc, stage)
	if err != nil {
		return fail(err, "failed to clean")
	}
	result.Processing = processed
	result.Warnings = processed.Warnings
	for _, warning := range processed.Warnings {
		log.WithError(warning).Warn("stage skipped")
	}
	if processed.Trim.AllSilent {
		log.Warn("no audio above the silence threshold, keeping the whole recording")
	}

	stage(processor.StagePersist, 0.0, nil)
	if err := writeWAVAtomic(output, processed.Output); err != nil {
		return fail(err, "failed to write cleaned audio")
	}
	written[output] = path
	result.Output = output
	stage(processor.StagePersist, 1.0, processed.FinalMeasurements)

	result.Elapsed = time.Since(start)

	fields := logrus.Fields{
		"output":      filepath.Base(output),
		"in_ms":       processed.InputMeasurements.DurationMS,
		"out_ms":      processed.FinalMeasurements.DurationMS,
		"trimmed_ms":  processed.Trim.RemovedMS(),
		"input_dbfs":  processed.InputMeasurements.RMSLevel,
		"output_dbfs": processed.FinalMeasurements.RMSLevel,
		"elapsed":     result.Elapsed.Round(time.Millisecond),
	}
	if processed.Normalisation != nil && !processed.Normalisation.Skipped {
		fields["gain_db"] = processed.Normalisation.GainDB
	}
	log.WithFields(fields).Info("cleaned")

	if p.reports {
		report := logging.ReportData{
			RunID:      p.runID,
			InputPath:  path,
			OutputPath: output,
			StartTime:  start,
			EndTime:    time.Now(),
			StageTimes: stageTimes,
			Result:     processed,
			Config:     p.proc,
			Metadata:   meta,
		}
		if reportPath, err := logging.GenerateReport(report); err != nil {
			log.WithError(err).Warn("failed to write analysis report")
		} else {
			log.WithField("report", filepath.Base(reportPath)).Debug("analysis report written")
		}
	}

	return result
}
