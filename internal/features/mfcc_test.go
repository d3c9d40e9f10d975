package features

import (
	"math"
	"testing"

	"github.com/linuxmatters/accentprep/internal/audio"
)

func tone(freq, amp float64, sampleRate, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return s
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(16000, DefaultConfig())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return e
}

func TestExtractShape(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name       string
		samples    int
		wantFrames int
	}{
		{"5s clip", 80000, 157},
		{"2s remainder clip", 32000, 63},
		{"shorter than one window", 1000, 2},
		{"single sample", 1, 1},
		{"exact hop multiple", 5120, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := e.Extract(tone(220, 0.3, 16000, tt.samples))
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if m.Rows() != 20 {
				t.Errorf("Rows = %d, want 20", m.Rows())
			}
			if m.Cols() != tt.wantFrames {
				t.Errorf("Cols = %d, want %d", m.Cols(), tt.wantFrames)
			}
			if e.FrameCount(tt.samples) != tt.wantFrames {
				t.Errorf("FrameCount = %d, want %d", e.FrameCount(tt.samples), tt.wantFrames)
			}
			for r, row := range m {
				for c, v := range row {
					if math.IsNaN(v) || math.IsInf(v, 0) {
						t.Fatalf("m[%d][%d] = %v", r, c, v)
					}
				}
			}
		})
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor(t)
	samples := tone(440, 0.5, 16000, 40000)
	for i := range samples {
		samples[i] += 0.01 * math.Sin(float64(i)*0.37)
	}

	a, err := e.Extract(samples)
	if err != nil {
		t.Fatal(err)
	}
	// A fresh extractor and a reused one must agree bit for bit
	b, err := newTestExtractor(t).Extract(samples)
	if err != nil {
		t.Fatal(err)
	}
	c, err := e.Extract(samples)
	if err != nil {
		t.Fatal(err)
	}

	for r := range a {
		for col := range a[r] {
			if a[r][col] != b[r][col] || a[r][col] != c[r][col] {
				t.Fatalf("m[%d][%d] differs: %v %v %v", r, col, a[r][col], b[r][col], c[r][col])
			}
		}
	}
}

func TestExtractSilenceIsFlat(t *testing.T) {
	e := newTestExtractor(t)
	m, err := e.Extract(make([]float64, 8000))
	if err != nil {
		t.Fatal(err)
	}
	// Every band sits at the 1e-10 floor (-100 dB), so only c0 is non-zero:
	// -100 * sqrt(128)
	want := -100 * math.Sqrt(128)
	for col, v := range m[0] {
		if math.Abs(v-want) > 1e-6 {
			t.Errorf("c0[%d] = %v, want %v", col, v, want)
		}
	}
	for r := 1; r < m.Rows(); r++ {
		for col, v := range m[r] {
			if math.Abs(v) > 1e-6 {
				t.Errorf("c%d[%d] = %v, want 0", r, col, v)
			}
		}
	}
}

func TestExtractTopDBFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumCoefficients = cfg.NumMels
	e, err := NewExtractor(16000, cfg)
	if err != nil {
		t.Fatal(err)
	}
	loud := tone(1000, 0.9, 16000, 16000)

	m, err := e.Extract(loud)
	if err != nil {
		t.Fatal(err)
	}
	// With all coefficients kept the DCT is invertible; recover the log-mel bands
	// of one frame and check the 80 dB floor
	bands := make([]float64, cfg.NumMels)
	for i := range bands {
		for k := range m {
			bands[i] += e.dct[k][i] * m[k][10]
		}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bands {
		lo = min(lo, b)
		hi = max(hi, b)
	}
	if hi-lo > 80+1e-6 {
		t.Errorf("band range %.2f dB exceeds top dB 80", hi-lo)
	}
}

func TestExtractClip(t *testing.T) {
	e := newTestExtractor(t)

	clip := audio.Clip{Index: 2, Source: "a.wav", Waveform: audio.Waveform{Samples: tone(300, 0.2, 16000, 16000), SampleRate: 16000}}
	if _, err := e.ExtractClip(clip); err != nil {
		t.Errorf("ExtractClip failed: %v", err)
	}

	clip.Waveform.SampleRate = 22050
	if _, err := e.ExtractClip(clip); err == nil {
		t.Error("expected sample rate mismatch error")
	}

	if _, err := e.Extract(nil); err != ErrEmptyClip {
		t.Errorf("Extract(nil) error = %v, want ErrEmptyClip", err)
	}
}

func TestNewExtractorValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"odd FFT size", func(c *Config) { c.FFTSize = 2047 }},
		{"zero hop", func(c *Config) { c.HopLength = 0 }},
		{"too many coefficients", func(c *Config) { c.NumCoefficients = 200 }},
		{"zero coefficients", func(c *Config) { c.NumCoefficients = 0 }},
		{"fmax above nyquist", func(c *Config) { c.FMax = 9000 }},
		{"fmin above fmax", func(c *Config) { c.FMin = 5000; c.FMax = 4000 }},
		{"negative top dB", func(c *Config) { c.TopDB = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if _, err := NewExtractor(16000, cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := NewExtractor(0, DefaultConfig()); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestDCTBasisIsOrthonormal(t *testing.T) {
	basis := dctBasis(8, 8)
	for i := range basis {
		for j := range basis {
			var dot float64
			for k := range basis[i] {
				dot += basis[i][k] * basis[j][k]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > 1e-12 {
				t.Errorf("<b%d, b%d> = %v, want %v", i, j, dot, want)
			}
		}
	}
}
