// Package processor implements the per-file cleaning stages and the segmenter.
// Every stage is a pure function on audio.Waveform values with no filesystem access.
package processor

import (
	"fmt"
	"math"
)

// StageID identifies a stage in the cleaning chain
type StageID string

// Stage identifiers for the cleaning chain
const (
	StageDecode    StageID = "decode"    // container → canonical mono waveform (orchestrator)
	StageTrim      StageID = "trim"      // drop spans below the silence threshold
	StageDenoise   StageID = "denoise"   // stationary spectral gating
	StageNormalise StageID = "normalise" // uniform gain to the target average loudness
	StagePersist   StageID = "persist"   // write the cleaned waveform (orchestrator)
	StageSegment   StageID = "segment"   // fan out fixed-length clips (orchestrator)
	StageFeatures  StageID = "features"  // MFCC table per clip (orchestrator)
)

// CleanStageOrder is the fixed order of the pure cleaning stages.
// Trim runs first so silent spans do not dilute the noise profile or the loudness average;
// normalisation runs last so the file-level level is set on the final signal.
var CleanStageOrder = []StageID{
	StageTrim,
	StageDenoise,
	StageNormalise,
}

// Config holds the tunable parameters for the cleaning stages and the segmenter
type Config struct {
	// Silence trimmer
	SilenceThresholdDBFS float64 // windows at or below this RMS level are silent (default -55)
	MinSilenceMS         float64 // shortest span treated as silence (default 1000)
	SeekStepMS           float64 // window hop while scanning for silence (default 1)

	// Noise reducer (stationary spectral gate)
	NoiseStrength      float64 // 0.0-1.0, proportion of detected noise removed
	NoiseFFTSize       int     // STFT size in samples (default 1024)
	NoiseStdThreshold  float64 // bins louder than mean+N*std of their profile are signal (default 1.5)
	NoiseFreqSmoothHz  float64 // mask smoothing across frequency
	NoiseTimeSmoothMS  float64 // mask smoothing across time
	HumFrequency       float64 // mains hum fundamental in Hz, 0 = no hum suppression
	HumHarmonics       int     // number of hum harmonics to suppress (including fundamental)
	HumWidthHz         float64 // half-width of each hum notch

	// Loudness normaliser
	TargetDBFS float64 // average loudness target (default -20)

	// Segmenter
	SegmentMS float64 // nominal clip duration (default 5000)
}

// DefaultConfig returns the values the dataset pipeline uses.
// NoiseStrength is 0.5 here; the library default for ReduceNoise callers is 1.0.
func DefaultConfig() *Config {
	return &Config{
		SilenceThresholdDBFS: -55.0,
		MinSilenceMS:         1000,
		SeekStepMS:           1,

		NoiseStrength:     0.5,
		NoiseFFTSize:      1024,
		NoiseStdThreshold: 1.5,
		NoiseFreqSmoothHz: 20,
		NoiseTimeSmoothMS: 20,
		HumFrequency:      0,
		HumHarmonics:      4,
		HumWidthHz:        20,

		TargetDBFS: -20.0,

		SegmentMS: 5000,
	}
}

// Validate rejects values that would make a stage meaningless
func (c *Config) Validate() error {
	switch {
	case c.MinSilenceMS <= 0:
		return fmt.Errorf("minimum silence must be positive, got %v ms", c.MinSilenceMS)
	case c.SeekStepMS <= 0:
		return fmt.Errorf("silence seek step must be positive, got %v ms", c.SeekStepMS)
	case math.IsNaN(c.SilenceThresholdDBFS) || math.IsInf(c.SilenceThresholdDBFS, 0):
		return fmt.Errorf("silence threshold must be finite")
	case c.NoiseStrength < 0 || c.NoiseStrength > 1 || math.IsNaN(c.NoiseStrength):
		return fmt.Errorf("noise strength must be within [0, 1], got %v", c.NoiseStrength)
	case c.NoiseFFTSize < 16 || c.NoiseFFTSize%4 != 0:
		return fmt.Errorf("noise FFT size must be a multiple of 4 and at least 16, got %d", c.NoiseFFTSize)
	case c.HumFrequency < 0:
		return fmt.Errorf("hum frequency cannot be negative, got %v", c.HumFrequency)
	case math.IsNaN(c.TargetDBFS) || math.IsInf(c.TargetDBFS, 0):
		return fmt.Errorf("target loudness must be finite")
	case c.SegmentMS <= 0:
		return fmt.Errorf("segment duration must be positive, got %v ms", c.SegmentMS)
	}
	return nil
}

// SilenceOptions extracts the trimmer parameters
func (c *Config) SilenceOptions() SilenceOptions {
	return SilenceOptions{
		ThresholdDBFS: c.SilenceThresholdDBFS,
		MinSilenceMS:  c.MinSilenceMS,
		SeekStepMS:    c.SeekStepMS,
	}
}

// NoiseOptions extracts the noise reducer parameters
func (c *Config) NoiseOptions() NoiseOptions {
	return NoiseOptions{
		Strength:     c.NoiseStrength,
		FFTSize:      c.NoiseFFTSize,
		StdThreshold: c.NoiseStdThreshold,
		FreqSmoothHz: c.NoiseFreqSmoothHz,
		TimeSmoothMS: c.NoiseTimeSmoothMS,
		HumFrequency: c.HumFrequency,
		HumHarmonics: c.HumHarmonics,
		HumWidthHz:   c.HumWidthHz,
	}
}
