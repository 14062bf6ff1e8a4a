package audio

import (
	"errors"
	"testing"

	"podclean/internal/services"
)

func rampClip(frames, rate, channels int) *Clip {
	samples := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = float32(i) + float32(ch)/10
		}
	}
	return &Clip{Samples: samples, SampleRate: rate, Channels: channels}
}

func TestClipValidate(t *testing.T) {
	tests := []struct {
		name string
		clip *Clip
		ok   bool
	}{
		{"mono", &Clip{Samples: []float32{0, 1}, SampleRate: 8000, Channels: 1}, true},
		{"stereo", &Clip{Samples: []float32{0, 1}, SampleRate: 8000, Channels: 2}, true},
		{"empty", &Clip{SampleRate: 8000, Channels: 1}, false},
		{"zero channels", &Clip{Samples: []float32{0}, SampleRate: 8000}, false},
		{"too many channels", &Clip{Samples: make([]float32, 9), SampleRate: 8000, Channels: 9}, false},
		{"ragged frames", &Clip{Samples: []float32{0, 1, 2}, SampleRate: 8000, Channels: 2}, false},
		{"bad rate", &Clip{Samples: []float32{0}, Channels: 1}, false},
		{"nil", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.clip.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, services.ErrInput) {
				t.Fatalf("expected ErrInput, got %v", err)
			}
		})
	}
}

func TestClipSliceClampsAndCopies(t *testing.T) {
	clip := rampClip(1000, 1000, 2) // 1 frame per ms

	part := clip.Slice(100, 200)
	if part.Frames() != 100 {
		t.Fatalf("expected 100 frames, got %d", part.Frames())
	}
	if part.Samples[0] != 100 || part.Samples[1] != 100.1 {
		t.Fatalf("unexpected first frame %v", part.Samples[:2])
	}
	part.Samples[0] = -1
	if clip.Samples[200] != 100 {
		t.Fatal("slice shares memory with source")
	}

	if got := clip.Slice(900, 5000).Frames(); got != 100 {
		t.Fatalf("expected clamp to 100 frames, got %d", got)
	}
	if got := clip.Slice(5000, 6000).Frames(); got != 0 {
		t.Fatalf("expected empty slice past end, got %d", got)
	}
	if got := clip.Slice(300, 200).Frames(); got != 0 {
		t.Fatalf("expected empty slice for inverted range, got %d", got)
	}
	if got := clip.SliceFrom(990).Frames(); got != 10 {
		t.Fatalf("expected 10 trailing frames, got %d", got)
	}
}

func TestFrameAtFloorsFractionalFrames(t *testing.T) {
	clip := rampClip(44100, 44100, 1)
	if got := clip.FrameAt(1); got != 44 {
		t.Fatalf("FrameAt(1) = %d, want 44", got)
	}
	if got := clip.FrameAt(-5); got != 0 {
		t.Fatalf("FrameAt(-5) = %d, want 0", got)
	}
	if got := clip.DurationMs(); got != 1000 {
		t.Fatalf("DurationMs = %d, want 1000", got)
	}
}

func TestConcat(t *testing.T) {
	clip := rampClip(10, 1000, 1)
	joined, err := Concat(clip.Slice(0, 3), clip.Slice(7, 10))
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	want := []float32{0, 1, 2, 7, 8, 9}
	if len(joined.Samples) != len(want) {
		t.Fatalf("got %v, want %v", joined.Samples, want)
	}
	for i := range want {
		if joined.Samples[i] != want[i] {
			t.Fatalf("got %v, want %v", joined.Samples, want)
		}
	}

	_, err = Concat(clip, rampClip(10, 2000, 1))
	if !errors.Is(err, services.ErrInvariant) {
		t.Fatalf("expected ErrInvariant for mismatched rates, got %v", err)
	}
}

func TestMonoAveragesChannels(t *testing.T) {
	clip := &Clip{Samples: []float32{1, -1, 0.5, 0.5, 0, 1}, SampleRate: 8000, Channels: 2}
	mono := clip.Mono()
	want := []float64{0, 0.5, 0.5}
	if mono.SampleRate != 8000 || len(mono.Samples) != len(want) {
		t.Fatalf("unexpected mono waveform %+v", mono)
	}
	for i := range want {
		if mono.Samples[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, mono.Samples[i], want[i])
		}
	}
}

func TestCloneAndEqual(t *testing.T) {
	clip := rampClip(20, 1000, 2)
	dup := clip.Clone()
	if !clip.Equal(dup) {
		t.Fatal("clone should be equal")
	}
	dup.Samples[3] = 42
	if clip.Equal(dup) {
		t.Fatal("mutated clone should differ")
	}
}
