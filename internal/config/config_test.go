package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accentprep.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Errorf("format = %+v, want 16000 Hz mono", cfg.Audio)
	}
	if cfg.Silence.ThresholdDBFS != -55 || cfg.Silence.MinSilenceMS != 1000 {
		t.Errorf("silence = %+v", cfg.Silence)
	}
	if cfg.Noise.Strength != 0.5 || cfg.Loudness.TargetDBFS != -20 {
		t.Errorf("noise strength %v, target %v", cfg.Noise.Strength, cfg.Loudness.TargetDBFS)
	}
	if cfg.Segment.DurationMS != 5000 || cfg.Features.NumCoefficients != 20 {
		t.Errorf("segment %v ms, n_mfcc %d", cfg.Segment.DurationMS, cfg.Features.NumCoefficients)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  label: scottish
silence:
  threshold_dbfs: -50
noise:
  strength: 0.8
  dehum: "60"
segment:
  duration_ms: 3000
features:
  n_mfcc: 13
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.Label != "scottish" {
		t.Errorf("Label = %q", cfg.Pipeline.Label)
	}
	if cfg.Silence.ThresholdDBFS != -50 {
		t.Errorf("ThresholdDBFS = %v, want -50", cfg.Silence.ThresholdDBFS)
	}
	if cfg.Silence.MinSilenceMS != 1000 {
		t.Errorf("MinSilenceMS = %v, want default 1000", cfg.Silence.MinSilenceMS)
	}
	if cfg.Noise.Strength != 0.8 || cfg.Noise.FFTSize != 1024 {
		t.Errorf("noise = %+v", cfg.Noise)
	}
	if cfg.Segment.DurationMS != 3000 || cfg.Features.NumCoefficients != 13 {
		t.Errorf("segment %v, n_mfcc %d", cfg.Segment.DurationMS, cfg.Features.NumCoefficients)
	}
	if hz, err := cfg.HumFrequency(); err != nil || hz != 60 {
		t.Errorf("HumFrequency = %v, %v, want 60", hz, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml")},
		{"unknown key", writeConfig(t, "silence:\n  threshold: -40\n")},
		{"bad type", writeConfig(t, "segment:\n  duration_ms: long\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load of empty file failed: %v", err)
	}
	if *cfg != *Default() {
		t.Error("empty file should yield defaults")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Root)
	}{
		{"low sample rate", func(c *Root) { c.Audio.SampleRate = 4000 }},
		{"stereo", func(c *Root) { c.Audio.Channels = 2 }},
		{"zero segment", func(c *Root) { c.Segment.DurationMS = 0 }},
		{"positive target", func(c *Root) { c.Loudness.TargetDBFS = 3 }},
		{"bad dehum", func(c *Root) { c.Noise.Dehum = "55" }},
		{"strength above one", func(c *Root) { c.Noise.Strength = 2 }},
		{"negative min silence", func(c *Root) { c.Silence.MinSilenceMS = -1 }},
		{"too many coefficients", func(c *Root) { c.Features.NumCoefficients = 500 }},
		{"fmax above nyquist", func(c *Root) { c.Features.FMax = 12000 }},
		{"unknown log level", func(c *Root) { c.Pipeline.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	cfg := Default()
	cfg.Noise.Strength = 0.3
	cfg.Features.HopLength = 256

	proc := cfg.ProcessorConfig(50)
	if proc.NoiseStrength != 0.3 || proc.HumFrequency != 50 || proc.SegmentMS != 5000 {
		t.Errorf("ProcessorConfig = %+v", proc)
	}
	if feat := cfg.FeaturesConfig(); feat.HopLength != 256 || feat.NumMels != 128 {
		t.Errorf("FeaturesConfig = %+v", feat)
	}
	if f := cfg.Format(); f.SampleRate != 16000 || f.Channels != 1 {
		t.Errorf("Format = %+v", f)
	}
}

func TestApplyOverrides(t *testing.T) {
	rate := 22050
	strength := 0.8
	dehum := "auto"
	level := "debug"

	cfg := Default()
	cfg.Apply(Overrides{
		SampleRate:    &rate,
		NoiseStrength: &strength,
		Dehum:         &dehum,
		LogLevel:      &level,
	})

	if cfg.Audio.SampleRate != 22050 || cfg.Noise.Strength != 0.8 || cfg.Noise.Dehum != "auto" || cfg.Pipeline.LogLevel != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Unset overrides keep their values
	def := Default()
	if cfg.Segment.DurationMS != def.Segment.DurationMS || cfg.Loudness.TargetDBFS != def.Loudness.TargetDBFS {
		t.Errorf("unset overrides changed values: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after overrides: %v", err)
	}
}
