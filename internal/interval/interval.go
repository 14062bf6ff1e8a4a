// Package interval merges half-open time intervals expressed in seconds.
//
// Matches from different snippets carry no identity once expressed in
// seconds, so the same Merge routine builds both the per-snippet match list and
// the episode-wide deletion plan.
package interval

import (
	"fmt"
	"sort"
)

// Match is a half-open interval [Start, End) in seconds.
type Match struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (m Match) Duration() float64 {
	return m.End - m.Start
}

func (m Match) String() string {
	return fmt.Sprintf("[%.3f, %.3f)", m.Start, m.End)
}

// Merge returns the minimal sorted set of non-overlapping intervals covering
// the union of the input. An interval whose start equals the current end is
// absorbed, so touching intervals coalesce. The input slice is not modified.
func Merge(intervals []Match) []Match {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Match, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := make([]Match, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start > current.End {
			merged = append(merged, current)
			current = next
			continue
		}
		if next.End > current.End {
			current.End = next.End
		}
	}
	return append(merged, current)
}

// Total returns the summed duration of a merged plan.
func Total(plan []Match) float64 {
	var total float64
	for _, m := range plan {
		total += m.Duration()
	}
	return total
}

// CheckPlan reports the first position where plan is not sorted and
// non-overlapping, or where an interval is inverted. Touching neighbours are
// accepted because the excision of [a,b) followed by [b,c) is well defined.
func CheckPlan(plan []Match) error {
	for i, m := range plan {
		if m.End < m.Start {
			return fmt.Errorf("interval %d %s ends before it starts", i, m)
		}
		if i > 0 && m.Start < plan[i-1].End {
			return fmt.Errorf("interval %d %s overlaps or precedes %s", i, m, plan[i-1])
		}
	}
	return nil
}
