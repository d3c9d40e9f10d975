package features

import "math"

// Slaney mel scale: linear below 1 kHz, logarithmic above
const (
	melFSP      = 200.0 / 3
	melMinLogHz = 1000.0
)

var (
	melMinLog  = melMinLogHz / melFSP
	melLogStep = math.Log(6.4) / 27.0
)

// HzToMel converts a frequency to the Slaney mel scale
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLog + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSP
}

// MelToHz converts a Slaney mel value back to Hz
func MelToHz(mel float64) float64 {
	if mel >= melMinLog {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLog))
	}
	return melFSP * mel
}

// melFilterBank builds numMels triangular filters over the nfft/2+1 power bins.
// Filter edges are evenly spaced in mel between fMin and fMax, and each filter is
// scaled by 2/(upper-lower) so filters have equal area (Slaney normalisation).
func melFilterBank(numMels, nfft, sampleRate int, fMin, fMax float64) [][]float64 {
	bins := nfft/2 + 1

	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}

	melMin, melMax := HzToMel(fMin), HzToMel(fMax)
	edges := make([]float64, numMels+2)
	for i := range edges {
		mel := melMin + (melMax-melMin)*float64(i)/float64(numMels+1)
		edges[i] = MelToHz(mel)
	}

	bank := make([][]float64, numMels)
	for m := range bank {
		lowerWidth := edges[m+1] - edges[m]
		upperWidth := edges[m+2] - edges[m+1]
		enorm := 2.0 / (edges[m+2] - edges[m])

		row := make([]float64, bins)
		for k, f := range fftFreqs {
			lower := (f - edges[m]) / lowerWidth
			upper := (edges[m+2] - f) / upperWidth
			row[k] = max(0, min(lower, upper)) * enorm
		}
		bank[m] = row
	}
	return bank
}
