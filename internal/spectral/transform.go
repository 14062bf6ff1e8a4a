package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"podclean/internal/audio"
	"podclean/internal/services"
)

// Spectrogram is a row-major [NMels][Frames] matrix of decibel values.
// It is never mutated after Transform returns it.
type Spectrogram struct {
	Params Params
	Frames int
	Data   []float64
}

// NMels returns the number of frequency rows.
func (s *Spectrogram) NMels() int { return s.Params.NMels }

// Row returns the values of mel band m across all frames. The slice aliases
// the spectrogram and must not be modified.
func (s *Spectrogram) Row(m int) []float64 {
	return s.Data[m*s.Frames : (m+1)*s.Frames]
}

// At returns the value of band m at frame t.
func (s *Spectrogram) At(m, t int) float64 {
	return s.Data[m*s.Frames+t]
}

// DurationSeconds is the time spanned by the frames.
func (s *Spectrogram) DurationSeconds() float64 {
	return s.Params.FrameSeconds(s.Frames)
}

// Transform converts a mono waveform to a log-power mel spectrogram. The
// waveform is resampled to p.SampleRate when needed and peak-normalised
// before analysis.
func Transform(w audio.Waveform, p Params) (*Spectrogram, error) {
	if p.TopDB == 0 {
		p.TopDB = DefaultTopDB
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(w.Samples) == 0 {
		return nil, services.Wrap(services.ErrInput, "spectral", "transform", "empty waveform", nil)
	}
	if w.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrInput, "spectral", "transform", fmt.Sprintf("invalid sample rate %d", w.SampleRate), nil)
	}
	if w.SampleRate != p.SampleRate {
		w = audio.Resample(w, p.SampleRate)
	}
	samples := audio.NormalizePeak(w.Samples)

	bands := melFilterbank(p.SampleRate, p.FFTSize, p.NMels)
	frames := 1 + len(samples)/p.HopLength
	data := make([]float64, p.NMels*frames)
	stft(samples, p.FFTSize, p.HopLength, func(t int, power []float64) {
		for m, band := range bands {
			data[m*frames+t] = band.apply(power)
		}
	})
	powerToDB(data, p.TopDB)
	return &Spectrogram{Params: p, Frames: frames, Data: data}, nil
}

// stft walks 1 + len/hop centred frames and hands |X|^2 of each to emit.
// The signal is padded with nfft/2 zeros on both sides so frame t is centred
// on sample t*hop. The power slice is reused between calls.
func stft(samples []float64, nfft, hop int, emit func(t int, power []float64)) {
	frames := 1 + len(samples)/hop
	pad := nfft / 2
	padded := make([]float64, len(samples)+2*pad)
	copy(padded[pad:], samples)

	window := hann(nfft)
	fft := fourier.NewFFT(nfft)
	segment := make([]float64, nfft)
	coeffs := make([]complex128, nfft/2+1)
	power := make([]float64, nfft/2+1)

	for t := 0; t < frames; t++ {
		start := t * hop
		floats.MulTo(segment, padded[start:start+nfft], window)
		coeffs = fft.Coefficients(coeffs, segment)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power[k] = re*re + im*im
		}
		emit(t, power)
	}
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// powerToDB converts power values in place to decibels relative to the
// largest value, then clamps everything more than topDB below the peak.
func powerToDB(data []float64, topDB float64) {
	if len(data) == 0 {
		return
	}
	ref := 10 * math.Log10(math.Max(amin, floats.Max(data)))
	for i, v := range data {
		data[i] = 10*math.Log10(math.Max(amin, v)) - ref
	}
	if topDB > 0 {
		floor := floats.Max(data) - topDB
		for i, v := range data {
			if v < floor {
				data[i] = floor
			}
		}
	}
}
