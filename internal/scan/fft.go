package scan

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// bandSpectra holds the Fourier coefficients of every z-scored episode band,
// zero padded to a power of two no shorter than the episode so that circular
// correlation equals linear correlation over the valid offsets.
type bandSpectra struct {
	size   int
	nMels  int
	coeffs [][]complex128
}

func newBandSpectra(z []float64, nMels, frames int) *bandSpectra {
	size := nextPow2(frames)
	fft := fourier.NewFFT(size)
	buf := make([]float64, size)
	bs := &bandSpectra{size: size, nMels: nMels, coeffs: make([][]complex128, nMels)}
	for m := 0; m < nMels; m++ {
		clear(buf)
		copy(buf, z[m*frames:(m+1)*frames])
		bs.coeffs[m] = fft.Coefficients(nil, buf)
	}
	return bs
}

// correlate returns the unnormalised correlation of the snippet against the
// episode for the first offsets lags. Band products are summed before the
// single inverse transform.
func (bs *bandSpectra) correlate(sn []float64, ts, offsets int) []float64 {
	fft := fourier.NewFFT(bs.size)
	buf := make([]float64, bs.size)
	acc := make([]complex128, bs.size/2+1)
	var snCoeffs []complex128
	for m := 0; m < bs.nMels; m++ {
		clear(buf)
		copy(buf, sn[m*ts:(m+1)*ts])
		snCoeffs = fft.Coefficients(snCoeffs, buf)
		ep := bs.coeffs[m]
		for k := range acc {
			s := snCoeffs[k]
			acc[k] += ep[k] * complex(real(s), -imag(s))
		}
	}
	seq := fft.Sequence(nil, acc)
	out := make([]float64, offsets)
	scale := 1 / float64(bs.size)
	for f := range out {
		out[f] = seq[f] * scale
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p < 2 {
		p = 2
	}
	return p
}
