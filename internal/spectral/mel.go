package spectral

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// melBand is one triangular filter restricted to its non-zero bins.
type melBand struct {
	lo      int
	weights []float64
}

func (b melBand) apply(power []float64) float64 {
	if len(b.weights) == 0 {
		return 0
	}
	return floats.Dot(b.weights, power[b.lo:b.lo+len(b.weights)])
}

// melFilterbank builds nMels triangular filters spanning 0 Hz to Nyquist,
// each scaled by 2/(upper-lower) so every filter has unit area.
func melFilterbank(sampleRate, nfft, nMels int) []melBand {
	nBins := nfft/2 + 1
	fftFreqs := make([]float64, nBins)
	floats.Span(fftFreqs, 0, float64(sampleRate)/2)

	melPoints := make([]float64, nMels+2)
	floats.Span(melPoints, hzToMel(0), hzToMel(float64(sampleRate)/2))
	hzPoints := make([]float64, len(melPoints))
	for i, m := range melPoints {
		hzPoints[i] = melToHz(m)
	}

	bands := make([]melBand, nMels)
	for i := 0; i < nMels; i++ {
		lower, center, upper := hzPoints[i], hzPoints[i+1], hzPoints[i+2]
		enorm := 2 / (upper - lower)
		row := make([]float64, nBins)
		first, last := -1, -1
		for k, f := range fftFreqs {
			rising := (f - lower) / (center - lower)
			falling := (upper - f) / (upper - center)
			w := math.Max(0, math.Min(rising, falling))
			if w > 0 {
				row[k] = w * enorm
				if first < 0 {
					first = k
				}
				last = k
			}
		}
		if first < 0 {
			bands[i] = melBand{}
			continue
		}
		bands[i] = melBand{lo: first, weights: row[first : last+1]}
	}
	return bands
}
