package audio

import (
	"math"
	"testing"
)

func TestResampleLength(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		samples  int
		want     int
	}{
		{"44.1k to 16k", 44100, 16000, 44100, 16000},
		{"48k to 16k", 48000, 16000, 96000, 32000},
		{"8k to 16k", 8000, 16000, 8000, 16000},
		{"22.05k to 16k half second", 22050, 16000, 11025, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResampler(tt.from, tt.to)
			out := r.Resample(make([]float64, tt.samples))
			if len(out) != tt.want {
				t.Errorf("len = %d, want %d", len(out), tt.want)
			}
		})
	}
}

func TestResamplePreservesDC(t *testing.T) {
	in := make([]float64, 4410)
	for i := range in {
		in[i] = 0.25
	}
	out := NewResampler(44100, 16000).Resample(in)
	for i, v := range out {
		if math.Abs(v-0.25) > 1e-9 {
			t.Fatalf("out[%d] = %f, want 0.25", i, v)
		}
	}
}

func TestResamplePreservesInBandTone(t *testing.T) {
	src := sineWave(440, 0.5, 44100, 1.0)
	out := Resample(src, 16000)

	// Skip the edges where the kernel is truncated
	edge := 100
	got := rms(out.Samples[edge : len(out.Samples)-edge])
	want := 0.5 / math.Sqrt2
	if math.Abs(got-want)/want > 0.02 {
		t.Errorf("rms = %f, want %f (±2%%)", got, want)
	}
}

func TestResampleAttenuatesAboveNyquist(t *testing.T) {
	// 12 kHz is above the 8 kHz Nyquist of the 16 kHz target and must not alias through
	src := sineWave(12000, 0.5, 48000, 1.0)
	out := Resample(src, 16000)

	edge := 100
	got := rms(out.Samples[edge : len(out.Samples)-edge])
	if got > 0.05 {
		t.Errorf("rms of out-of-band tone = %f, want < 0.05", got)
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	src := Waveform{Samples: []float64{0.1, 0.2, 0.3}, SampleRate: 16000}
	out := Resample(src, 16000)
	out.Samples[0] = 9
	if src.Samples[0] != 0.1 {
		t.Error("Resample at equal rates aliased the input")
	}
}
