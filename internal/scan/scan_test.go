package scan

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"podclean/internal/audio"
	"podclean/internal/interval"
	"podclean/internal/services"
	"podclean/internal/spectral"
	"podclean/internal/testsupport"
)

func randomSpectrogram(rng *rand.Rand, nMels, frames int) *spectral.Spectrogram {
	p := spectral.DefaultParams()
	p.NMels = nMels
	data := make([]float64, nMels*frames)
	for i := range data {
		data[i] = -80 * rng.Float64()
	}
	return &spectral.Spectrogram{Params: p, Frames: frames, Data: data}
}

func subSpectrogram(s *spectral.Spectrogram, start, frames int) *spectral.Spectrogram {
	data := make([]float64, 0, s.Params.NMels*frames)
	for m := 0; m < s.Params.NMels; m++ {
		data = append(data, s.Row(m)[start:start+frames]...)
	}
	return &spectral.Spectrogram{Params: s.Params, Frames: frames, Data: data}
}

func transform(t *testing.T, samples []float64) *spectral.Spectrogram {
	t.Helper()
	spec, err := spectral.Transform(audio.Waveform{Samples: samples, SampleRate: 16000}, spectral.DefaultParams())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	return spec
}

func TestSelfMatchCoversWholeClip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	spec := randomSpectrogram(rng, 8, 50)

	detail, err := ScanDetailed(spec, spec, 0.75)
	if err != nil {
		t.Fatalf("ScanDetailed: %v", err)
	}
	if detail.Offsets != 1 || detail.PeakOffset != 0 {
		t.Fatalf("expected a single valid offset at 0, got %+v", detail)
	}
	if math.Abs(detail.PeakScore-1) > 1e-12 {
		t.Fatalf("self score %v, want 1", detail.PeakScore)
	}
	want := []interval.Match{{Start: 0, End: spec.Params.FrameSeconds(50)}}
	if len(detail.Matches) != 1 || detail.Matches[0] != want[0] {
		t.Fatalf("matches %v, want %v", detail.Matches, want)
	}
}

func TestScanFindsEmbeddedSnippet(t *testing.T) {
	chirp := testsupport.Chirp(300, 4000, 2, 16000)
	episode := testsupport.Concat(
		testsupport.Noise(5, 16000, 0.05, 7),
		chirp,
		testsupport.Noise(5, 16000, 0.05, 8),
	)
	ep := transform(t, episode)
	sn := transform(t, chirp)

	detail, err := ScanDetailed(ep, sn, 0)
	if err != nil {
		t.Fatalf("ScanDetailed: %v", err)
	}
	if math.Abs(detail.PeakSeconds-5) > 0.1 {
		t.Fatalf("peak at %.3f s, want ~5 s (score %.3f)", detail.PeakSeconds, detail.PeakScore)
	}

	matches, err := Scan(ep, sn, detail.PeakScore*0.9)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one merged match, got %v", matches)
	}
	if math.Abs(matches[0].Start-5) > 0.1 || math.Abs(matches[0].End-7) > 0.2 {
		t.Fatalf("match %v, want roughly [5, 7)", matches[0])
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	ep := randomSpectrogram(rng, 6, 300)
	sn := subSpectrogram(ep, 120, 20)

	thresholds := []float64{-0.5, 0, 0.1, 0.3, 0.6, 0.9, 1.5}
	var prev []interval.Match
	for i, th := range thresholds {
		got, err := Scan(ep, sn, th)
		if err != nil {
			t.Fatalf("Scan(%v): %v", th, err)
		}
		if i > 0 && !covered(got, prev) {
			t.Fatalf("matches at threshold %v (%v) not contained in matches at %v (%v)", th, got, thresholds[i-1], prev)
		}
		prev = got
	}
}

func covered(inner, outer []interval.Match) bool {
	for _, m := range inner {
		ok := false
		for _, o := range outer {
			if m.Start >= o.Start && m.End <= o.End {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func TestScanMatchesAreMerged(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	ep := randomSpectrogram(rng, 4, 200)
	sn := subSpectrogram(ep, 50, 30)
	matches, err := Scan(ep, sn, -10)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// Every offset passes, so the union is the whole episode.
	want := interval.Match{Start: 0, End: ep.Params.FrameSeconds(200)}
	if len(matches) != 1 || math.Abs(matches[0].Start-want.Start) > 1e-9 || math.Abs(matches[0].End-want.End) > 1e-9 {
		t.Fatalf("matches %v, want [%v]", matches, want)
	}
	if err := interval.CheckPlan(matches); err != nil {
		t.Fatalf("scan output is not a valid plan: %v", err)
	}
}

func TestSnippetLongerThanEpisode(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	ep := randomSpectrogram(rng, 4, 10)
	sn := randomSpectrogram(rng, 4, 11)
	detail, err := ScanDetailed(ep, sn, 0)
	if err != nil {
		t.Fatalf("ScanDetailed: %v", err)
	}
	if len(detail.Matches) != 0 || detail.Offsets != 0 || detail.PeakOffset != -1 {
		t.Fatalf("expected no offsets, got %+v", detail)
	}
}

func TestDegenerateSpectrogramYieldsNoMatches(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	ep := randomSpectrogram(rng, 4, 40)
	flat := &spectral.Spectrogram{Params: ep.Params, Frames: 5, Data: make([]float64, 4*5)}

	detail, err := ScanDetailed(ep, flat, -1)
	if err != nil {
		t.Fatalf("ScanDetailed: %v", err)
	}
	if !detail.Degenerate || len(detail.Matches) != 0 {
		t.Fatalf("expected degenerate result, got %+v", detail)
	}

	detail, err = ScanDetailed(flat, subSpectrogram(flat, 0, 2), -1)
	if err != nil {
		t.Fatalf("ScanDetailed: %v", err)
	}
	if !detail.Degenerate || len(detail.Matches) != 0 {
		t.Fatalf("expected degenerate episode result, got %+v", detail)
	}

	nan := subSpectrogram(ep, 0, 5)
	nan.Data[3] = math.NaN()
	detail, err = ScanDetailed(ep, nan, -1)
	if err != nil || !detail.Degenerate {
		t.Fatalf("expected NaN input to be degenerate, got %+v, %v", detail, err)
	}
}

func TestConfigMismatch(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	ep := randomSpectrogram(rng, 4, 40)
	sn := subSpectrogram(ep, 0, 5)
	sn.Params.HopLength = 256
	if _, err := Scan(ep, sn, 0.5); !errors.Is(err, services.ErrConfigMismatch) {
		t.Fatalf("expected ErrConfigMismatch, got %v", err)
	}
	if _, err := Scan(ep, nil, 0.5); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput for nil snippet, got %v", err)
	}
}

func TestFFTAndDirectAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 14))
	for _, tc := range []struct{ nMels, te, ts int }{
		{1, 4, 2},
		{3, 17, 5},
		{8, 256, 40},
		{16, 1000, 333},
	} {
		ep := randomSpectrogram(rng, tc.nMels, tc.te)
		sn := randomSpectrogram(rng, tc.nMels, tc.ts)
		zEp, okEp := zscore(ep.Data)
		zSn, okSn := zscore(sn.Data)
		if !okEp || !okSn {
			t.Fatalf("%+v: random spectrogram has no variance", tc)
		}
		offsets := tc.te - tc.ts + 1

		direct := correlateDirect(zEp, tc.te, zSn, tc.ts, tc.nMels, offsets)
		viaFFT := newBandSpectra(zEp, tc.nMels, tc.te).correlate(zSn, tc.ts, offsets)
		for f := range direct {
			if math.Abs(direct[f]-viaFFT[f]) > 1e-9*math.Max(1, math.Abs(direct[f])) {
				t.Fatalf("%+v offset %d: direct %v fft %v", tc, f, direct[f], viaFFT[f])
			}
		}
	}
}

func TestZScoreRejectsConstantData(t *testing.T) {
	for _, data := range [][]float64{{}, {0.7}, {2, 2, 2}} {
		if z, ok := zscore(data); ok || z != nil {
			t.Errorf("zscore(%v) = %v, %v; want nil, false", data, z, ok)
		}
	}
}

func TestPreparedIsReusable(t *testing.T) {
	rng := rand.New(rand.NewPCG(15, 16))
	ep := randomSpectrogram(rng, 8, 400)
	prepared, err := Prepare(ep)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for _, start := range []int{0, 100, 350} {
		sn := subSpectrogram(ep, start, 50)
		detail, err := prepared.ScanDetailed(sn, 0.5)
		if err != nil {
			t.Fatalf("ScanDetailed: %v", err)
		}
		if detail.PeakOffset != start {
			t.Fatalf("snippet from frame %d peaked at %d", start, detail.PeakOffset)
		}
	}
}
