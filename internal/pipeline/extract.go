package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// Extract segments every cleaned waveform in cleanedDir and writes, per clip,
// segmentsRoot/<label>/<stem>_segment_<i>.wav and
// featuresRoot/<label>/<stem>_segment_<i>.csv. Each clip is persisted before the
// next one is produced, and clips of the same stem numbered past the new clip
// count are removed first. An empty label falls back to the configured label and
// then to the name of cleanedDir.
func (p *Pipeline) Extract(ctx context.Context, cleanedDir, segmentsRoot, featuresRoot, label string) (*Summary, error) {
	start := time.Now()

	label = p.Label(label, cleanedDir)
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}

	files, err := ListCleanedFiles(cleanedDir)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{
		filepath.Join(segmentsRoot, label),
		filepath.Join(featuresRoot, label),
	} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}

	p.log.WithFields(logrus.Fields{
		"phase":    PhaseExtract,
		"input":    cleanedDir,
		"segments": segmentsRoot,
		"features": featuresRoot,
		"label":    label,
		"files":    len(files),
	}).Info("phase started")

	summary := p.newSummary(PhaseExtract, len(files))
	p.observer.PhaseStarted(PhaseExtract, files)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			p.finish(summary, start)
			return summary, err
		}

		p.observer.FileStarted(PhaseExtract, i, path)
		result := p.extractFile(ctx, i, path, segmentsRoot, featuresRoot, label)
		summary.add(result)
		p.observer.FileCompleted(result)
	}

	p.finish(summary, start)
	return summary, nil
}

// extractFile stops at the first failing clip. Clips written before the failure
// stay on disk and are counted in the result.
func (p *Pipeline) extractFile(ctx context.Context, index int, path, segmentsRoot, featuresRoot, label string) FileResult {
	start := time.Now()
	result := FileResult{Phase: PhaseExtract, Index: index, Input: path}
	log := p.log.WithFields(logrus.Fields{
		"phase": PhaseExtract,
		"file":  filepath.Base(path),
		"label": label,
	})

	fail := func(err error, msg string) FileResult {
		result.Err = err
		result.Elapsed = time.Since(start)
		log.WithError(err).WithFields(logrus.Fields{
			"clips":  result.Clips,
			"tables": result.Tables,
		}).Error(msg)
		return result
	}

	p.observer.StageChanged(PhaseExtract, index, processor.StageDecode, 0.0, nil)
	w, meta, err := audio.Load(context.WithoutCancel(ctx), path, p.format)
	if err != nil {
		return fail(err, "failed to decode")
	}
	result.Metadata = meta
	p.observer.StageChanged(PhaseExtract, index, processor.StageDecode, 1.0, nil)

	stem := Stem(path)
	total := processor.SegmentCount(w, p.segmentMS)
	p.observer.StageChanged(PhaseExtract, index, processor.StageSegment, 0.0, nil)
	// a shorter re-run must not leave higher-numbered clips from the last one
	if err := removeStaleSegments(segmentsRoot, featuresRoot, label, stem, total); err != nil {
		return fail(err, "failed to remove stale clips")
	}
	p.observer.StageChanged(PhaseExtract, index, processor.StageSegment, 1.0, nil)

	for clip := range processor.Segments(w, p.segmentMS, label, stem) {
		clipPath := SegmentPath(segmentsRoot, label, stem, clip.Index)
		if err := writeWAVAtomic(clipPath, clip.Waveform); err != nil {
			return fail(err, "failed to write clip")
		}
		result.Clips++

		matrix, err := p.extractor.ExtractClip(clip)
		if err != nil {
			return fail(err, "failed to extract features")
		}
		if err := writeTableAtomic(FeaturePath(featuresRoot, label, stem, clip.Index), matrix); err != nil {
			return fail(err, "failed to write feature table")
		}
		result.Tables++

		log.WithFields(logrus.Fields{
			"clip":   clip.Index,
			"ms":     clip.Waveform.DurationMS(),
			"frames": matrix.Cols(),
		}).Debug("clip written")
		p.observer.StageChanged(PhaseExtract, index, processor.StageFeatures, float64(clip.Index+1)/float64(total), nil)
	}

	result.Elapsed = time.Since(start)
	log.WithFields(logrus.Fields{
		"clips":   result.Clips,
		"tables":  result.Tables,
		"elapsed": result.Elapsed.Round(time.Millisecond),
	}).Info("extracted")
	return result
}
