// Package spectral turns mono audio into log-power mel spectrograms.
//
// Transform follows the conventional layout used for audio matching: a
// centred short-time Fourier transform with a periodic Hann window, a
// Slaney-style mel filterbank with area normalisation, and conversion to
// decibels relative to the loudest bin of the clip, floored 80 dB below it.
// Two spectrograms are only comparable when they share Params.
package spectral
