package audio

import (
	"testing"
	"time"
)

func TestWaveformDuration(t *testing.T) {
	w := Waveform{Samples: make([]float64, 24000), SampleRate: 16000}
	if got := w.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", got)
	}
	if got := w.DurationMS(); got != 1500 {
		t.Errorf("DurationMS = %v, want 1500", got)
	}

	var empty Waveform
	if empty.Duration() != 0 || empty.DurationMS() != 0 {
		t.Error("zero-rate waveform should report zero duration")
	}
}

func TestWaveformClone(t *testing.T) {
	w := Waveform{Samples: []float64{1, 2, 3}, SampleRate: 8000}
	c := w.Clone()
	c.Samples[1] = 42
	if w.Samples[1] != 2 {
		t.Error("Clone shares memory with the original")
	}
	if c.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", c.SampleRate)
	}
}

func TestMSToSamples(t *testing.T) {
	tests := []struct {
		ms   float64
		rate int
		want int
	}{
		{1000, 16000, 16000},
		{5000, 16000, 80000},
		{1, 16000, 16},
		{1, 44100, 44},
		{0.5, 16000, 8},
	}
	for _, tt := range tests {
		if got := MSToSamples(tt.ms, tt.rate); got != tt.want {
			t.Errorf("MSToSamples(%v, %d) = %d, want %d", tt.ms, tt.rate, got, tt.want)
		}
	}
}
