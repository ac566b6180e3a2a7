package slides

import (
	"math"
)

// MinFramesBetween is the debounce gap in samples.
func MinFramesBetween(minSlideDuration, interval float64) int {
	if !(interval > 0) || !(minSlideDuration > 0) {
		return 0
	}
	// the epsilon absorbs quotients like 0.3/0.1 = 2.9999999999999996
	return int(math.Ceil(minSlideDuration/interval - 1e-9))
}

// BuildTrace compares every adjacent pair of samples.
func BuildTrace(samples []Sample) ([]TracePoint, error) {
	if len(samples) < 2 {
		return nil, nil
	}
	trace := make([]TracePoint, 0, len(samples)-1)
	prev := Prepare(samples[0].Image)
	for i := 1; i < len(samples); i++ {
		curr := Prepare(samples[i].Image)
		score, err := Compare(prev, curr)
		if err != nil {
			return nil, err
		}
		trace = append(trace, TracePoint{
			Ordinal:   samples[i].Ordinal,
			Timestamp: samples[i].Timestamp,
			Score:     score,
		})
		prev = curr
	}
	return trace, nil
}

// RawTransitions returns the ordinals whose score is strictly below
// threshold.
func RawTransitions(trace []TracePoint, threshold float64) []int {
	var out []int
	for _, p := range trace {
		if p.Score < threshold {
			out = append(out, p.Ordinal)
		}
	}
	return out
}

// Debouncer folds candidates left to right, keeping one only if it is the
// first or lies at least Gap samples after the last kept one.
type Debouncer struct {
	Gap int

	last    int
	hasLast bool
}

// Offer reports whether candidate is kept.
func (d *Debouncer) Offer(candidate int) bool {
	if d.hasLast && candidate-d.last < d.Gap {
		return false
	}
	d.last = candidate
	d.hasLast = true
	return true
}

// Debounce merges bursts of candidates, anchoring each at its first member.
func Debounce(candidates []int, minGap int) []int {
	d := Debouncer{Gap: minGap}
	var kept []int
	for _, c := range candidates {
		if d.Offer(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// Detect is RawTransitions followed by Debounce.
func Detect(trace []TracePoint, threshold float64, minGap int) []int {
	return Debounce(RawTransitions(trace, threshold), minGap)
}
