package spectral

import (
	"fmt"

	"podclean/internal/services"
)

// Default analysis parameters.
const (
	DefaultSampleRate = 16000
	DefaultFFTSize    = 2048
	DefaultHopLength  = 512
	DefaultNMels      = 64
	DefaultTopDB      = 80.0

	// amin is the power floor before taking logarithms.
	amin = 1e-10
)

// Params controls the transform. Spectrograms produced with different
// SampleRate, HopLength, or NMels cannot be compared.
type Params struct {
	SampleRate int
	FFTSize    int
	HopLength  int
	NMels      int
	TopDB      float64
}

// DefaultParams returns the standard analysis parameters.
func DefaultParams() Params {
	return Params{
		SampleRate: DefaultSampleRate,
		FFTSize:    DefaultFFTSize,
		HopLength:  DefaultHopLength,
		NMels:      DefaultNMels,
		TopDB:      DefaultTopDB,
	}
}

// Validate checks that the parameters describe a realisable transform.
func (p Params) Validate() error {
	switch {
	case p.SampleRate <= 0:
		return paramError("sample_rate must be positive, got %d", p.SampleRate)
	case p.FFTSize <= 0 || p.FFTSize%2 != 0:
		return paramError("fft_size must be a positive even number, got %d", p.FFTSize)
	case p.HopLength <= 0:
		return paramError("hop_length must be positive, got %d", p.HopLength)
	case p.NMels <= 0:
		return paramError("n_mels must be positive, got %d", p.NMels)
	case p.NMels > p.FFTSize/2+1:
		return paramError("n_mels %d exceeds the %d frequency bins", p.NMels, p.FFTSize/2+1)
	case p.TopDB < 0:
		return paramError("top_db must not be negative, got %g", p.TopDB)
	}
	return nil
}

// Compatible reports whether spectrograms built with p and other can be
// compared frame for frame.
func (p Params) Compatible(other Params) bool {
	return p.SampleRate == other.SampleRate && p.HopLength == other.HopLength && p.NMels == other.NMels
}

// FrameSeconds converts a frame offset to seconds.
func (p Params) FrameSeconds(frame int) float64 {
	return float64(frame) * float64(p.HopLength) / float64(p.SampleRate)
}

func paramError(format string, args ...any) error {
	return services.Wrap(services.ErrConfiguration, "spectral", "params", fmt.Sprintf(format, args...), nil)
}
