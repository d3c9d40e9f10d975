package processor

import (
	"errors"
	"fmt"

	"github.com/linuxmatters/accentprep/internal/audio"
)

// ProgressFunc receives stage updates. progress is 0.0 when a stage starts and
// 1.0 when it finishes; measurements are attached to finished stages.
type ProgressFunc func(stage StageID, progress float64, measurements *AudioMeasurements)

// ProcessingResult contains the cleaned waveform and what each stage did to it
type ProcessingResult struct {
	Output audio.Waveform

	InputMeasurements    *AudioMeasurements
	TrimmedMeasurements  *AudioMeasurements
	DenoisedMeasurements *AudioMeasurements
	FinalMeasurements    *AudioMeasurements

	Trim          TrimResult
	Normalisation *NormalisationResult

	// Warnings holds non-fatal stage errors (see ErrDegenerateInput)
	Warnings []error
}

// ProcessAudio runs the cleaning chain on a canonical waveform in CleanStageOrder:
// silence trim, noise reduction, then loudness normalisation. The input is not
// modified. Degenerate input never fails the chain; the affected stage passes its
// input through and the warning is recorded in the result.
//
// If progressCallback is not nil, it is called at the start and end of each stage.
func ProcessAudio(w audio.Waveform, config *Config, progressCallback ProgressFunc) (*ProcessingResult, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid processing config: %w", err)
	}

	report := func(stage StageID, progress float64, m *AudioMeasurements) {
		if progressCallback != nil {
			progressCallback(stage, progress, m)
		}
	}

	result := &ProcessingResult{
		InputMeasurements: AnalyzeAudio(w),
	}

	current := w
	for _, stage := range CleanStageOrder {
		report(stage, 0.0, nil)

		var (
			next audio.Waveform
			err  error
		)
		switch stage {
		case StageTrim:
			next, result.Trim = TrimSilence(current, config.SilenceOptions())
		case StageDenoise:
			next, err = ReduceNoise(current, config.NoiseOptions())
		case StageNormalise:
			next, result.Normalisation, err = Normalise(current, config.TargetDBFS)
		default:
			return nil, fmt.Errorf("unknown cleaning stage %q", stage)
		}

		if err != nil {
			if !errors.Is(err, ErrDegenerateInput) {
				return nil, fmt.Errorf("%s failed: %w", stage, err)
			}
			result.Warnings = append(result.Warnings, err)
		}

		measurements := AnalyzeAudio(next)
		switch stage {
		case StageTrim:
			result.TrimmedMeasurements = measurements
		case StageDenoise:
			result.DenoisedMeasurements = measurements
		case StageNormalise:
			result.FinalMeasurements = measurements
		}

		report(stage, 1.0, measurements)
		current = next
	}

	result.Output = current
	return result, nil
}
