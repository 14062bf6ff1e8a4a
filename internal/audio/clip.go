package audio

import (
	"fmt"
	"math"

	"podclean/internal/services"
)

// MaxChannels is the widest channel layout the engine accepts.
const MaxChannels = 8

// Waveform is a mono signal used for analysis.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// DurationSeconds returns the waveform length in seconds.
func (w Waveform) DurationSeconds() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Clip is decoded audio at its native rate and layout. Samples are
// interleaved by frame.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// NewClip validates and wraps interleaved samples.
func NewClip(samples []float32, sampleRate, channels int) (*Clip, error) {
	clip := &Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}
	if err := clip.Validate(); err != nil {
		return nil, err
	}
	return clip, nil
}

// Validate rejects clips the engine cannot process.
func (c *Clip) Validate() error {
	if c == nil {
		return services.Wrap(services.ErrInput, "audio", "validate", "nil clip", nil)
	}
	if c.Channels < 1 || c.Channels > MaxChannels {
		return services.Wrap(services.ErrInput, "audio", "validate", fmt.Sprintf("unsupported channel count %d", c.Channels), nil)
	}
	if c.SampleRate <= 0 {
		return services.Wrap(services.ErrInput, "audio", "validate", fmt.Sprintf("invalid sample rate %d", c.SampleRate), nil)
	}
	if len(c.Samples) == 0 {
		return services.Wrap(services.ErrInput, "audio", "validate", "no samples", nil)
	}
	if len(c.Samples)%c.Channels != 0 {
		return services.Wrap(services.ErrInput, "audio", "validate", "sample count is not a multiple of the channel count", nil)
	}
	return nil
}

// Frames returns the number of sample frames.
func (c *Clip) Frames() int {
	if c == nil || c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// DurationMs returns the clip length in whole milliseconds.
func (c *Clip) DurationMs() int64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return int64(c.Frames()) * 1000 / int64(c.SampleRate)
}

// DurationSeconds returns the clip length in seconds.
func (c *Clip) DurationSeconds() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// FrameAt converts a millisecond position to a frame index, clamped to
// [0, Frames()].
func (c *Clip) FrameAt(ms int64) int {
	if ms <= 0 {
		return 0
	}
	frame := ms * int64(c.SampleRate) / 1000
	if total := int64(c.Frames()); frame > total {
		return int(total)
	}
	return int(frame)
}

// Slice returns the frames in [startMs, endMs). Bounds are clamped to the clip
// and an inverted range yields an empty clip. The result shares no memory with c.
func (c *Clip) Slice(startMs, endMs int64) *Clip {
	start := c.FrameAt(startMs)
	end := c.FrameAt(endMs)
	if end < start {
		end = start
	}
	out := make([]float32, (end-start)*c.Channels)
	copy(out, c.Samples[start*c.Channels:end*c.Channels])
	return &Clip{Samples: out, SampleRate: c.SampleRate, Channels: c.Channels}
}

// SliceFrom returns everything from startMs to the end of the clip.
func (c *Clip) SliceFrom(startMs int64) *Clip {
	start := c.FrameAt(startMs)
	out := make([]float32, len(c.Samples)-start*c.Channels)
	copy(out, c.Samples[start*c.Channels:])
	return &Clip{Samples: out, SampleRate: c.SampleRate, Channels: c.Channels}
}

// Clone returns a deep copy.
func (c *Clip) Clone() *Clip {
	out := make([]float32, len(c.Samples))
	copy(out, c.Samples)
	return &Clip{Samples: out, SampleRate: c.SampleRate, Channels: c.Channels}
}

// Concat joins clips end to end. All parts must share rate and layout.
func Concat(parts ...*Clip) (*Clip, error) {
	if len(parts) == 0 {
		return nil, services.Wrap(services.ErrInvariant, "audio", "concat", "no parts", nil)
	}
	first := parts[0]
	total := 0
	for _, part := range parts {
		if part.SampleRate != first.SampleRate || part.Channels != first.Channels {
			return nil, services.Wrap(services.ErrInvariant, "audio", "concat",
				fmt.Sprintf("format mismatch: %d Hz/%d ch vs %d Hz/%d ch", part.SampleRate, part.Channels, first.SampleRate, first.Channels), nil)
		}
		total += len(part.Samples)
	}
	out := make([]float32, 0, total)
	for _, part := range parts {
		out = append(out, part.Samples...)
	}
	return &Clip{Samples: out, SampleRate: first.SampleRate, Channels: first.Channels}, nil
}

// Mono averages all channels into a Waveform at the clip's native rate.
func (c *Clip) Mono() Waveform {
	frames := c.Frames()
	samples := make([]float64, frames)
	if c.Channels == 1 {
		for i, v := range c.Samples {
			samples[i] = float64(v)
		}
		return Waveform{Samples: samples, SampleRate: c.SampleRate}
	}
	scale := 1 / float64(c.Channels)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * c.Channels
		for ch := 0; ch < c.Channels; ch++ {
			sum += float64(c.Samples[base+ch])
		}
		samples[i] = sum * scale
	}
	return Waveform{Samples: samples, SampleRate: c.SampleRate}
}

// Equal reports whether two clips carry identical samples and format.
func (c *Clip) Equal(other *Clip) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.SampleRate != other.SampleRate || c.Channels != other.Channels || len(c.Samples) != len(other.Samples) {
		return false
	}
	for i := range c.Samples {
		if math.Float32bits(c.Samples[i]) != math.Float32bits(other.Samples[i]) {
			return false
		}
	}
	return true
}
