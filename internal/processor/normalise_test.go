package processor

import (
	"errors"
	"math"
	"testing"

	"github.com/linuxmatters/accentprep/internal/audio"
)

func TestNormalise(t *testing.T) {
	tests := []struct {
		name       string
		inputDBFS  float64
		targetDBFS float64
		wantGainDB float64
	}{
		{"quiet speech raised to -20", -30, -20, 10},
		{"loud speech lowered to -20", -12, -20, -8},
		{"already at target", -20, -20, 0},
		{"custom target", -35, -23, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A sine's RMS is its peak over sqrt(2), so raise the peak by 3.01 dB
			peak := tt.inputDBFS + 20*math.Log10(math.Sqrt2)
			w := generateTestAudio(t, TestAudioOptions{DurationSecs: 2, ToneFreq: 200, ToneLevel: peak})

			got := RMSDBFS(w.Samples)
			if math.Abs(got-tt.inputDBFS) > 0.01 {
				t.Fatalf("fixture loudness = %.3f dBFS, want %.1f", got, tt.inputDBFS)
			}

			out, res, err := Normalise(w, tt.targetDBFS)
			if err != nil {
				t.Fatalf("Normalise failed: %v", err)
			}
			if math.Abs(res.GainDB-tt.wantGainDB) > 0.01 {
				t.Errorf("GainDB = %.3f, want %.1f", res.GainDB, tt.wantGainDB)
			}
			if math.Abs(RMSDBFS(out.Samples)-tt.targetDBFS) > 1e-6 {
				t.Errorf("output loudness = %.6f dBFS, want %.1f", RMSDBFS(out.Samples), tt.targetDBFS)
			}
			if math.Abs(res.OutputDBFS-tt.targetDBFS) > 1e-6 {
				t.Errorf("OutputDBFS = %.6f, want %.1f", res.OutputDBFS, tt.targetDBFS)
			}
			if out.Len() != w.Len() || out.SampleRate != w.SampleRate {
				t.Errorf("shape changed: %d@%d -> %d@%d", w.Len(), w.SampleRate, out.Len(), out.SampleRate)
			}
		})
	}
}

func TestNormaliseIsIdempotent(t *testing.T) {
	w := generateTestAudio(t, TestAudioOptions{DurationSecs: 3, ToneFreq: 440, ToneLevel: -27, NoiseLevel: -45})

	once, _, err := Normalise(w, -20)
	if err != nil {
		t.Fatal(err)
	}
	twice, res, err := Normalise(once, -20)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(res.GainDB) > 1e-9 {
		t.Errorf("second pass gain = %g dB, want 0", res.GainDB)
	}
	for i := range once.Samples {
		if math.Abs(twice.Samples[i]-once.Samples[i]) > 1e-12 {
			t.Fatalf("sample %d changed on second pass: %g -> %g", i, once.Samples[i], twice.Samples[i])
		}
	}
}

func TestNormalisePreservesRelativeLevels(t *testing.T) {
	w := audio.Waveform{Samples: []float64{0.01, -0.02, 0.04, -0.08}, SampleRate: 16000}
	out, _, err := Normalise(w, -10)
	if err != nil {
		t.Fatal(err)
	}
	ratio := out.Samples[0] / w.Samples[0]
	for i := range w.Samples {
		if math.Abs(out.Samples[i]/w.Samples[i]-ratio) > 1e-12 {
			t.Errorf("sample %d scaled by %g, want uniform %g", i, out.Samples[i]/w.Samples[i], ratio)
		}
	}
}

func TestNormaliseCountsClipping(t *testing.T) {
	// Crest factor of a single spike is high, so reaching -3 dBFS average pushes it past full scale
	w := constantWaveform(1000, 0.01, 16000)
	w.Samples[500] = 0.5

	out, res, err := Normalise(w, -3)
	if err != nil {
		t.Fatal(err)
	}
	if res.ClippedSamples == 0 {
		t.Error("ClippedSamples = 0, want the spike counted")
	}
	if out.Samples[500] <= 1.0 {
		t.Errorf("spike = %f, want > 1 (no limiter)", out.Samples[500])
	}
}

func TestNormaliseDegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		w    audio.Waveform
	}{
		{"empty", audio.Waveform{SampleRate: 16000}},
		{"silent", constantWaveform(4800, 0, 16000)},
		{"infinite", audio.Waveform{Samples: []float64{math.Inf(1), 0.1}, SampleRate: 16000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, res, err := Normalise(tt.w, -20)
			if !errors.Is(err, ErrDegenerateInput) {
				t.Fatalf("error = %v, want ErrDegenerateInput", err)
			}
			if !res.Skipped || res.GainDB != 0 {
				t.Errorf("result = %+v, want skipped with zero gain", res)
			}
			if out.Len() != tt.w.Len() {
				t.Errorf("Len = %d, want %d", out.Len(), tt.w.Len())
			}
			for i, v := range out.Samples {
				if math.IsNaN(v) {
					t.Fatalf("sample %d is NaN", i)
				}
			}
		})
	}
}
