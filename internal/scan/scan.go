package scan

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"podclean/internal/interval"
	"podclean/internal/services"
	"podclean/internal/spectral"
)

// Detail is the full outcome of scanning one snippet.
type Detail struct {
	Matches []interval.Match `json:"matches"`
	// PeakScore is the best score over all valid offsets.
	PeakScore float64 `json:"peak_score"`
	// PeakOffset is the frame offset of PeakScore, or -1 when there were no
	// valid offsets.
	PeakOffset  int     `json:"peak_offset"`
	PeakSeconds float64 `json:"peak_seconds"`
	// Offsets is the number of valid alignments evaluated.
	Offsets int `json:"offsets"`
	// Degenerate is set when either spectrogram has no variance, in which
	// case no alignment is scored.
	Degenerate bool `json:"degenerate"`
	// Scores holds the score of every valid offset.
	Scores []float64 `json:"-"`
}

// Scan returns the merged intervals of episode where snippet scores above
// threshold.
func Scan(episode, snippet *spectral.Spectrogram, threshold float64) ([]interval.Match, error) {
	detail, err := ScanDetailed(episode, snippet, threshold)
	if err != nil {
		return nil, err
	}
	return detail.Matches, nil
}

// ScanDetailed is Scan with diagnostics.
func ScanDetailed(episode, snippet *spectral.Spectrogram, threshold float64) (Detail, error) {
	prepared, err := Prepare(episode)
	if err != nil {
		return Detail{}, err
	}
	return prepared.ScanDetailed(snippet, threshold)
}

// Prepared is an episode spectrogram ready to be scanned. It is safe for
// concurrent use.
type Prepared struct {
	params     spectral.Params
	frames     int
	nMels      int
	z          []float64
	degenerate bool
	spectra    *bandSpectra
}

// Prepare validates and z-scores the episode side of a scan.
func Prepare(episode *spectral.Spectrogram) (*Prepared, error) {
	if err := checkSpectrogram(episode, "episode"); err != nil {
		return nil, err
	}
	z, ok := zscore(episode.Data)
	p := &Prepared{
		params:     episode.Params,
		frames:     episode.Frames,
		nMels:      episode.Params.NMels,
		z:          z,
		degenerate: !ok,
	}
	if ok {
		p.spectra = newBandSpectra(z, p.nMels, p.frames)
	}
	return p, nil
}

// Frames returns the episode length in frames.
func (p *Prepared) Frames() int { return p.frames }

// Degenerate reports whether the episode spectrogram has no variance.
func (p *Prepared) Degenerate() bool { return p.degenerate }

// Scan is the method form of the package Scan.
func (p *Prepared) Scan(snippet *spectral.Spectrogram, threshold float64) ([]interval.Match, error) {
	detail, err := p.ScanDetailed(snippet, threshold)
	if err != nil {
		return nil, err
	}
	return detail.Matches, nil
}

// ScanDetailed scores snippet at every valid offset of the prepared episode.
func (p *Prepared) ScanDetailed(snippet *spectral.Spectrogram, threshold float64) (Detail, error) {
	detail := Detail{PeakOffset: -1}
	if math.IsNaN(threshold) {
		return detail, services.Wrap(services.ErrConfiguration, "scan", "threshold", "threshold is NaN", nil)
	}
	if err := checkSpectrogram(snippet, "snippet"); err != nil {
		return detail, err
	}
	if !p.params.Compatible(snippet.Params) {
		return detail, services.Wrap(services.ErrConfigMismatch, "scan", "compare",
			fmt.Sprintf("episode (sr=%d hop=%d mels=%d) vs snippet (sr=%d hop=%d mels=%d)",
				p.params.SampleRate, p.params.HopLength, p.params.NMels,
				snippet.Params.SampleRate, snippet.Params.HopLength, snippet.Params.NMels), nil)
	}

	ts := snippet.Frames
	offsets := p.frames - ts + 1
	if offsets <= 0 {
		return detail, nil
	}
	zs, ok := zscore(snippet.Data)
	if !ok || p.degenerate {
		detail.Degenerate = true
		return detail, nil
	}

	var scores []float64
	if preferFFT(p.frames, ts, p.spectra) {
		scores = p.spectra.correlate(zs, ts, offsets)
	} else {
		scores = correlateDirect(p.z, p.frames, zs, ts, p.nMels, offsets)
	}
	floats.Scale(1/float64(p.nMels*ts), scores)

	detail.Scores = scores
	detail.Offsets = offsets
	detail.PeakOffset = floats.MaxIdx(scores)
	detail.PeakScore = scores[detail.PeakOffset]
	detail.PeakSeconds = p.params.FrameSeconds(detail.PeakOffset)

	snippetSeconds := p.params.FrameSeconds(ts)
	var raw []interval.Match
	for f, score := range scores {
		if score > threshold {
			start := p.params.FrameSeconds(f)
			raw = append(raw, interval.Match{Start: start, End: start + snippetSeconds})
		}
	}
	detail.Matches = interval.Merge(raw)
	return detail, nil
}

func checkSpectrogram(s *spectral.Spectrogram, role string) error {
	if s == nil {
		return services.Wrap(services.ErrInput, "scan", role, "missing spectrogram", nil)
	}
	if s.Frames <= 0 || s.Params.NMels <= 0 || len(s.Data) != s.Frames*s.Params.NMels {
		return services.Wrap(services.ErrInput, "scan", role,
			fmt.Sprintf("malformed spectrogram: %d values for %dx%d", len(s.Data), s.Params.NMels, s.Frames), nil)
	}
	return nil
}

// zscore standardises data with its population mean and deviation. It
// reports false when the deviation is zero or any value is not finite.
func zscore(data []float64) ([]float64, bool) {
	n := float64(len(data))
	mean := floats.Sum(data) / n
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return nil, false
	}
	var ss float64
	for _, v := range data {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / n)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil, false
	}
	out := make([]float64, len(data))
	floats.AddConst(-mean, floats.ScaleTo(out, 1, data))
	floats.Scale(1/std, out)
	return out, true
}

// correlateDirect returns the unnormalised valid-mode correlation summed over
// all bands: out[f] = sum_m sum_j ep[m][f+j] * sn[m][j].
func correlateDirect(ep []float64, te int, sn []float64, ts, nMels, offsets int) []float64 {
	out := make([]float64, offsets)
	for m := 0; m < nMels; m++ {
		epRow := ep[m*te : (m+1)*te]
		snRow := sn[m*ts : (m+1)*ts]
		for f := 0; f < offsets; f++ {
			out[f] += floats.Dot(epRow[f:f+ts], snRow)
		}
	}
	return out
}

// preferFFT compares the direct multiply count against a rough FFT cost.
func preferFFT(te, ts int, spectra *bandSpectra) bool {
	if spectra == nil {
		return false
	}
	direct := float64(ts) * float64(te-ts+1)
	l := float64(spectra.size)
	return direct > 4*l*math.Log2(l)
}
