// Package features computes MFCC matrices for segmented clips and persists them
// as header-less CSV tables.
package features

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/linuxmatters/accentprep/internal/audio"
)

// Config controls MFCC extraction. The defaults are the common 2048/512
// analysis with 128 Slaney mel bands and 20 coefficients.
type Config struct {
	NumCoefficients int     // rows in the output matrix (default 20)
	FFTSize         int     // analysis window length in samples (default 2048)
	HopLength       int     // samples between frames (default 512)
	NumMels         int     // mel bands (default 128)
	FMin            float64 // lowest filter edge in Hz (default 0)
	FMax            float64 // highest filter edge in Hz, 0 = Nyquist
	TopDB           float64 // log-mel floor relative to the clip maximum, 0 disables (default 80)
}

// DefaultConfig returns the standard extraction settings
func DefaultConfig() Config {
	return Config{
		NumCoefficients: 20,
		FFTSize:         2048,
		HopLength:       512,
		NumMels:         128,
		FMin:            0,
		FMax:            0,
		TopDB:           80,
	}
}

// ErrEmptyClip is returned when a clip has no samples
var ErrEmptyClip = errors.New("clip has no samples")

// amin is the power floor applied before taking logs
const amin = 1e-10

// Matrix is a feature matrix of shape [coefficients][frames]
type Matrix [][]float64

// Rows returns the number of coefficients
func (m Matrix) Rows() int {
	return len(m)
}

// Cols returns the number of frames
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Extractor computes MFCCs for clips at one sample rate. It holds precomputed
// tables and scratch buffers, so a single Extractor must not be shared between
// goroutines.
type Extractor struct {
	cfg        Config
	sampleRate int

	fft     *fourier.FFT
	window  []float64
	melBank [][]float64
	dct     [][]float64 // [NumCoefficients][NumMels] orthonormal DCT-II basis

	frame []float64
	coeff []complex128
	power []float64
}

// NewExtractor validates cfg and precomputes the window, filterbank and DCT basis
func NewExtractor(sampleRate int, cfg Config) (*Extractor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if cfg.FMax <= 0 {
		cfg.FMax = float64(sampleRate) / 2
	}
	switch {
	case cfg.FFTSize < 2 || cfg.FFTSize%2 != 0:
		return nil, fmt.Errorf("FFT size must be a positive even number, got %d", cfg.FFTSize)
	case cfg.HopLength <= 0:
		return nil, fmt.Errorf("hop length must be positive, got %d", cfg.HopLength)
	case cfg.NumMels <= 0:
		return nil, fmt.Errorf("mel band count must be positive, got %d", cfg.NumMels)
	case cfg.NumCoefficients <= 0 || cfg.NumCoefficients > cfg.NumMels:
		return nil, fmt.Errorf("coefficient count must be within [1, %d], got %d", cfg.NumMels, cfg.NumCoefficients)
	case cfg.FMin < 0 || cfg.FMin >= cfg.FMax:
		return nil, fmt.Errorf("invalid mel range %.1f-%.1f Hz", cfg.FMin, cfg.FMax)
	case cfg.FMax > float64(sampleRate)/2:
		return nil, fmt.Errorf("mel upper edge %.1f Hz is above Nyquist for %d Hz", cfg.FMax, sampleRate)
	case cfg.TopDB < 0:
		return nil, fmt.Errorf("top dB must not be negative, got %v", cfg.TopDB)
	}

	bins := cfg.FFTSize/2 + 1
	return &Extractor{
		cfg:        cfg,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(cfg.FFTSize),
		window:     hannWindow(cfg.FFTSize),
		melBank:    melFilterBank(cfg.NumMels, cfg.FFTSize, sampleRate, cfg.FMin, cfg.FMax),
		dct:        dctBasis(cfg.NumCoefficients, cfg.NumMels),
		frame:      make([]float64, cfg.FFTSize),
		coeff:      make([]complex128, bins),
		power:      make([]float64, bins),
	}, nil
}

// Config returns the resolved configuration
func (e *Extractor) Config() Config {
	return e.cfg
}

// FrameCount returns the number of frames produced for n samples: 1 + n/hop
func (e *Extractor) FrameCount(n int) int {
	return 1 + n/e.cfg.HopLength
}

// ExtractClip computes the MFCC matrix of a clip. The clip must be at the
// extractor's sample rate.
func (e *Extractor) ExtractClip(c audio.Clip) (Matrix, error) {
	if c.Waveform.SampleRate != e.sampleRate {
		return nil, fmt.Errorf("clip %d of %s is %d Hz, extractor expects %d Hz",
			c.Index, c.Source, c.Waveform.SampleRate, e.sampleRate)
	}
	return e.Extract(c.Waveform.Samples)
}

// Extract computes the MFCC matrix of samples.
//
// Frames are centred: the signal is zero padded by FFTSize/2 on both sides, so
// frame t covers samples centred on t*HopLength and a clip of n samples yields
// 1 + n/HopLength frames. Each frame's Hann-windowed power spectrum is mapped
// through the mel filterbank, converted to dB (10*log10, floored at 1e-10 and at
// TopDB below the loudest cell of the clip) and decorrelated with an orthonormal
// DCT-II, keeping the first NumCoefficients.
//
// The computation is deterministic: identical input yields a bit-identical matrix.
func (e *Extractor) Extract(samples []float64) (Matrix, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyClip
	}

	nfft := e.cfg.FFTSize
	hop := e.cfg.HopLength
	pad := nfft / 2
	frames := e.FrameCount(len(samples))

	logMel := make([][]float64, frames)
	peak := math.Inf(-1)

	for t := range frames {
		start := t*hop - pad
		for i := range e.frame {
			j := start + i
			if j >= 0 && j < len(samples) {
				e.frame[i] = samples[j] * e.window[i]
			} else {
				e.frame[i] = 0
			}
		}
		e.fft.Coefficients(e.coeff, e.frame)
		for k, c := range e.coeff {
			a := cmplx.Abs(c)
			e.power[k] = a * a
		}

		bands := make([]float64, e.cfg.NumMels)
		for m, filter := range e.melBank {
			var sum float64
			for k, w := range filter {
				if w != 0 {
					sum += w * e.power[k]
				}
			}
			db := 10 * math.Log10(max(amin, sum))
			bands[m] = db
			peak = max(peak, db)
		}
		logMel[t] = bands
	}

	if e.cfg.TopDB > 0 {
		floor := peak - e.cfg.TopDB
		for _, bands := range logMel {
			for m, v := range bands {
				bands[m] = max(v, floor)
			}
		}
	}

	out := make(Matrix, e.cfg.NumCoefficients)
	for c, basis := range e.dct {
		row := make([]float64, frames)
		for t, bands := range logMel {
			var sum float64
			for m, b := range basis {
				sum += b * bands[m]
			}
			row[t] = sum
		}
		out[c] = row
	}
	return out, nil
}

// hannWindow returns a periodic Hann window of length n
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// dctBasis returns the first rows of an orthonormal DCT-II of size n
func dctBasis(rows, n int) [][]float64 {
	basis := make([][]float64, rows)
	for k := range basis {
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		row := make([]float64, n)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n)))
		}
		basis[k] = row
	}
	return basis
}
