// Package excise removes a deletion plan from decoded audio.
//
// Excision is a pure cut and splice on frame boundaries: the kept spans are
// concatenated in their original order with no crossfade and no inserted
// silence. Interval edges are rounded to whole milliseconds, and each
// millisecond position maps to frame floor(ms*rate/1000).
package excise

import (
	"math"

	"podclean/internal/audio"
	"podclean/internal/interval"
	"podclean/internal/services"
)

// Excise returns a new clip holding the complement of plan. plan must be
// sorted and non-overlapping, as produced by interval.Merge; anything else is
// reported as services.ErrInvariant. Intervals reaching past the end of the
// clip are clamped. An empty plan yields an exact copy.
func Excise(clip *audio.Clip, plan []interval.Match) (*audio.Clip, error) {
	if err := clip.Validate(); err != nil {
		return nil, err
	}
	if err := interval.CheckPlan(plan); err != nil {
		return nil, services.Wrap(services.ErrInvariant, "excise", "check plan", "deletion plan must come from interval.Merge", err)
	}
	if len(plan) == 0 {
		return clip.Clone(), nil
	}

	parts := make([]*audio.Clip, 0, len(plan)+1)
	var cursor int64
	for _, m := range plan {
		parts = append(parts, clip.Slice(cursor, Milliseconds(m.Start)))
		cursor = Milliseconds(m.End)
	}
	parts = append(parts, clip.SliceFrom(cursor))
	return audio.Concat(parts...)
}

// Milliseconds rounds a position in seconds to the nearest millisecond.
func Milliseconds(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
