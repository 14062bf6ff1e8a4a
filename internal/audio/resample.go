package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// resampleZeroCrossings is the half-width of the sinc kernel in zero crossings
// of the lower of the two Nyquist frequencies.
const resampleZeroCrossings = 8

// Resample converts a waveform to the target rate with a Hann-windowed sinc
// interpolator. The output has ceil(len * to / from) samples. When the rates
// already match the samples are copied unchanged.
func Resample(w Waveform, targetRate int) Waveform {
	if w.SampleRate == targetRate || targetRate <= 0 || w.SampleRate <= 0 || len(w.Samples) == 0 {
		out := make([]float64, len(w.Samples))
		copy(out, w.Samples)
		rate := w.SampleRate
		if targetRate > 0 && len(w.Samples) == 0 {
			rate = targetRate
		}
		return Waveform{Samples: out, SampleRate: rate}
	}

	ratio := float64(targetRate) / float64(w.SampleRate)
	outLen := int(math.Ceil(float64(len(w.Samples)) * ratio))
	out := make([]float64, outLen)

	// Downsampling lowers the cutoff so the kernel also acts as the
	// anti-aliasing filter.
	cutoff := math.Min(1, ratio)
	halfWidth := float64(resampleZeroCrossings) / cutoff
	n := len(w.Samples)

	for i := range out {
		center := float64(i) / ratio
		lo := int(math.Ceil(center - halfWidth))
		hi := int(math.Floor(center + halfWidth))
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		var acc float64
		for j := lo; j <= hi; j++ {
			x := center - float64(j)
			acc += w.Samples[j] * cutoff * sinc(cutoff*x) * hannTaper(x, halfWidth)
		}
		out[i] = acc
	}
	return Waveform{Samples: out, SampleRate: targetRate}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func hannTaper(x, halfWidth float64) float64 {
	if math.Abs(x) >= halfWidth {
		return 0
	}
	return 0.5 * (1 + math.Cos(math.Pi*x/halfWidth))
}

// NormalizePeak scales a copy of samples so the largest absolute value is 1.
// Silent input is returned unchanged.
func NormalizePeak(samples []float64) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	var peak float64
	for _, v := range out {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return out
	}
	floats.Scale(1/peak, out)
	return out
}
