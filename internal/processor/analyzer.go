package processor

import (
	"math"
	"slices"

	"github.com/linuxmatters/accentprep/internal/audio"
)

// troughWindowMS is the window length used to find the quietest stretch of a file
const troughWindowMS = 50

// AudioMeasurements contains level statistics for one waveform.
// Levels are dBFS relative to full scale (1.0); silence reports -Inf.
type AudioMeasurements struct {
	DurationMS   float64 `json:"duration_ms"`
	RMSLevel     float64 `json:"rms_level"`     // Average loudness over the whole waveform (dBFS)
	PeakLevel    float64 `json:"peak_level"`    // Largest absolute sample (dBFS)
	RMSTrough    float64 `json:"rms_trough"`    // RMS of the quietest 10% of 50ms windows - noise floor indicator (dBFS)
	DynamicRange float64 `json:"dynamic_range"` // Peak minus trough (dB)
	Samples      int     `json:"samples"`
}

// AnalyzeAudio measures a waveform. It never fails: an empty waveform yields zero
// duration and -Inf levels.
func AnalyzeAudio(w audio.Waveform) *AudioMeasurements {
	m := &AudioMeasurements{
		DurationMS: w.DurationMS(),
		Samples:    w.Len(),
		RMSLevel:   RMSDBFS(w.Samples),
		PeakLevel:  PeakDBFS(w.Samples),
		RMSTrough:  troughDBFS(w),
	}
	m.DynamicRange = m.PeakLevel - m.RMSTrough
	if math.IsNaN(m.DynamicRange) || math.IsInf(m.DynamicRange, 0) {
		m.DynamicRange = 0
	}
	return m
}

// troughDBFS averages the energy of the quietest 10% of analysis windows
func troughDBFS(w audio.Waveform) float64 {
	win := audio.MSToSamples(troughWindowMS, w.SampleRate)
	if win <= 0 || w.Len() < win {
		return RMSDBFS(w.Samples)
	}

	var energies []float64
	for start := 0; start+win <= w.Len(); start += win {
		energies = append(energies, meanSquare(w.Samples[start:start+win]))
	}
	slices.Sort(energies)

	n := max(1, len(energies)/10)
	var sum float64
	for _, e := range energies[:n] {
		sum += e
	}
	return ToDBFS(math.Sqrt(sum / float64(n)))
}

// RMSDBFS returns the average loudness of samples in dBFS, 20*log10(rms)
func RMSDBFS(samples []float64) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	return ToDBFS(math.Sqrt(meanSquare(samples)))
}

// PeakDBFS returns the absolute peak of samples in dBFS
func PeakDBFS(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		peak = max(peak, math.Abs(s))
	}
	return ToDBFS(peak)
}

// ToDBFS converts a linear amplitude to dBFS. Zero maps to -Inf.
func ToDBFS(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(linear)
}

// DbToLinear converts dB to a linear amplitude factor
func DbToLinear(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

func meanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}
