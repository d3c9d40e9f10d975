// Package config loads the pipeline settings from an optional YAML file.
// Every field has a default; the CLI overrides individual fields after loading.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/features"
	"github.com/linuxmatters/accentprep/internal/mains"
	"github.com/linuxmatters/accentprep/internal/processor"
)

type Pipeline struct {
	LogLevel string `yaml:"log_level"`
	Label    string `yaml:"label"` // empty = name of the input directory
}

type Audio struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

type Silence struct {
	ThresholdDBFS float64 `yaml:"threshold_dbfs"`
	MinSilenceMS  float64 `yaml:"min_silence_ms"`
	SeekStepMS    float64 `yaml:"seek_step_ms"`
}

type Noise struct {
	Strength     float64 `yaml:"strength"`
	FFTSize      int     `yaml:"fft_size"`
	StdThreshold float64 `yaml:"std_threshold"`
	FreqSmoothHz float64 `yaml:"freq_smooth_hz"`
	TimeSmoothMS float64 `yaml:"time_smooth_ms"`
	Dehum        string  `yaml:"dehum"` // off, auto, 50 or 60
	HumHarmonics int     `yaml:"hum_harmonics"`
	HumWidthHz   float64 `yaml:"hum_width_hz"`
}

type Loudness struct {
	TargetDBFS float64 `yaml:"target_dbfs"`
}

type Segment struct {
	DurationMS float64 `yaml:"duration_ms"`
}

type Features struct {
	NumCoefficients int     `yaml:"n_mfcc"`
	FFTSize         int     `yaml:"fft_size"`
	HopLength       int     `yaml:"hop_length"`
	NumMels         int     `yaml:"n_mels"`
	FMin            float64 `yaml:"fmin"`
	FMax            float64 `yaml:"fmax"`
	TopDB           float64 `yaml:"top_db"`
}

// Root is the complete configuration file
type Root struct {
	Pipeline Pipeline `yaml:"pipeline"`
	Audio    Audio    `yaml:"audio"`
	Silence  Silence  `yaml:"silence"`
	Noise    Noise    `yaml:"noise"`
	Loudness Loudness `yaml:"loudness"`
	Segment  Segment  `yaml:"segment"`
	Features Features `yaml:"features"`
}

// Default returns the configuration used when no file is given
func Default() *Root {
	proc := processor.DefaultConfig()
	feat := features.DefaultConfig()
	format := audio.DefaultFormat()

	return &Root{
		Pipeline: Pipeline{LogLevel: "info"},
		Audio: Audio{
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
		},
		Silence: Silence{
			ThresholdDBFS: proc.SilenceThresholdDBFS,
			MinSilenceMS:  proc.MinSilenceMS,
			SeekStepMS:    proc.SeekStepMS,
		},
		Noise: Noise{
			Strength:     proc.NoiseStrength,
			FFTSize:      proc.NoiseFFTSize,
			StdThreshold: proc.NoiseStdThreshold,
			FreqSmoothHz: proc.NoiseFreqSmoothHz,
			TimeSmoothMS: proc.NoiseTimeSmoothMS,
			Dehum:        string(mains.ModeOff),
			HumHarmonics: proc.HumHarmonics,
			HumWidthHz:   proc.HumWidthHz,
		},
		Loudness: Loudness{TargetDBFS: proc.TargetDBFS},
		Segment:  Segment{DurationMS: proc.SegmentMS},
		Features: Features{
			NumCoefficients: feat.NumCoefficients,
			FFTSize:         feat.FFTSize,
			HopLength:       feat.HopLength,
			NumMels:         feat.NumMels,
			FMin:            feat.FMin,
			FMax:            feat.FMax,
			TopDB:           feat.TopDB,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their default
// values; unknown keys are an error. An empty path returns the defaults.
func Load(path string) (*Root, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings that would make a stage meaningless
func (c *Root) Validate() error {
	if _, err := logrus.ParseLevel(c.Pipeline.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Pipeline.LogLevel)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample rate %d Hz is outside 8000-192000", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("only mono output is supported, got %d channels", c.Audio.Channels)
	}
	if c.Segment.DurationMS <= 0 {
		return fmt.Errorf("segment duration must be positive, got %v ms", c.Segment.DurationMS)
	}
	if math.IsNaN(c.Loudness.TargetDBFS) || c.Loudness.TargetDBFS > 0 {
		return fmt.Errorf("target loudness must be at most 0 dBFS, got %v", c.Loudness.TargetDBFS)
	}
	if _, err := mains.ParseMode(c.Noise.Dehum); err != nil {
		return err
	}
	if err := c.ProcessorConfig(0).Validate(); err != nil {
		return err
	}
	if _, err := features.NewExtractor(c.Audio.SampleRate, c.FeaturesConfig()); err != nil {
		return fmt.Errorf("invalid feature settings: %w", err)
	}
	return nil
}

// Format returns the canonical waveform format
func (c *Root) Format() audio.Format {
	return audio.Format{SampleRate: c.Audio.SampleRate, Channels: c.Audio.Channels}
}

// HumFrequency resolves the dehum setting to Hz, 0 when off
func (c *Root) HumFrequency() (float64, error) {
	mode, err := mains.ParseMode(c.Noise.Dehum)
	if err != nil {
		return 0, err
	}
	return mains.Resolve(mode), nil
}

// ProcessorConfig builds the cleaning stage parameters with the resolved hum frequency
func (c *Root) ProcessorConfig(humHz float64) *processor.Config {
	return &processor.Config{
		SilenceThresholdDBFS: c.Silence.ThresholdDBFS,
		MinSilenceMS:         c.Silence.MinSilenceMS,
		SeekStepMS:           c.Silence.SeekStepMS,

		NoiseStrength:     c.Noise.Strength,
		NoiseFFTSize:      c.Noise.FFTSize,
		NoiseStdThreshold: c.Noise.StdThreshold,
		NoiseFreqSmoothHz: c.Noise.FreqSmoothHz,
		NoiseTimeSmoothMS: c.Noise.TimeSmoothMS,
		HumFrequency:      humHz,
		HumHarmonics:      c.Noise.HumHarmonics,
		HumWidthHz:        c.Noise.HumWidthHz,

		TargetDBFS: c.Loudness.TargetDBFS,
		SegmentMS:  c.Segment.DurationMS,
	}
}

// FeaturesConfig builds the MFCC extraction parameters
func (c *Root) FeaturesConfig() features.Config {
	return features.Config{
		NumCoefficients: c.Features.NumCoefficients,
		FFTSize:         c.Features.FFTSize,
		HopLength:       c.Features.HopLength,
		NumMels:         c.Features.NumMels,
		FMin:            c.Features.FMin,
		FMax:            c.Features.FMax,
		TopDB:           c.Features.TopDB,
	}
}

// Overrides are individual settings given on the command line. Nil fields keep
// the value from the file or the default.
type Overrides struct {
	SampleRate    *int     `name:"sample-rate" help:"Target sample rate in Hz"`
	SilenceThresh *float64 `name:"silence-thresh" help:"Silence threshold in dBFS"`
	MinSilence    *float64 `name:"min-silence" help:"Shortest silence to remove, in ms"`
	NoiseStrength *float64 `name:"noise-strength" help:"Noise reduction strength (0-1)"`
	Dehum         *string  `name:"dehum" help:"Mains hum suppression: off, auto, 50 or 60"`
	TargetDBFS    *float64 `name:"target-dbfs" help:"Loudness target in dBFS"`
	SegmentMS     *float64 `name:"segment-ms" help:"Clip duration in ms"`
	NumMFCC       *int     `name:"n-mfcc" help:"Number of MFCC coefficients"`
	LogLevel      *string  `name:"log-level" help:"Log level (error, warn, info, debug)"`
}

// Apply copies every set override into c
func (c *Root) Apply(o Overrides) {
	setIf(&c.Audio.SampleRate, o.SampleRate)
	setIf(&c.Silence.ThresholdDBFS, o.SilenceThresh)
	setIf(&c.Silence.MinSilenceMS, o.MinSilence)
	setIf(&c.Noise.Strength, o.NoiseStrength)
	setIf(&c.Noise.Dehum, o.Dehum)
	setIf(&c.Loudness.TargetDBFS, o.TargetDBFS)
	setIf(&c.Segment.DurationMS, o.SegmentMS)
	setIf(&c.Features.NumCoefficients, o.NumMFCC)
	setIf(&c.Pipeline.LogLevel, o.LogLevel)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
