package slides

import (
	"github.com/samber/lo"
)

// Segments partitions [0, n) at the given transition ordinals. Empty
// ranges produced by malformed input (duplicates, out of order or out of
// range boundaries) are dropped.
func Segments(n int, transitions []int) []Segment {
	if n <= 0 {
		return nil
	}
	bounds := make([]int, 0, len(transitions)+2)
	bounds = append(bounds, 0)
	for _, t := range transitions {
		bounds = append(bounds, lo.Clamp(t, 0, n))
	}
	bounds = append(bounds, n)

	segments := make([]Segment, 0, len(bounds)-1)
	start := 0
	for _, b := range bounds[1:] {
		if b <= start {
			continue
		}
		segments = append(segments, Segment{Start: start, End: b})
		start = b
	}
	return segments
}

// champion tracks the sharpest sample of a segment. A later sample only
// replaces the current one when strictly sharper.
type champion struct {
	slide Slide
	set   bool
}

func (c *champion) offer(s Sample, sharpness float64) {
	if c.set && !(sharpness > c.slide.Sharpness) {
		return
	}
	c.slide = Slide{
		Image:      s.Image,
		Ordinal:    s.Ordinal,
		FrameIndex: s.FrameIndex,
		Timestamp:  s.Timestamp,
		Sharpness:  sharpness,
	}
	c.set = true
}

// SelectBest picks the sharpest sample of every non-empty segment.
func SelectBest(samples []Sample, segments []Segment) []Slide {
	slides := make([]Slide, 0, len(segments))
	for _, seg := range segments {
		if seg.Empty() || seg.Start < 0 || seg.End > len(samples) {
			continue
		}
		var best champion
		for _, s := range samples[seg.Start:seg.End] {
			best.offer(s, Sharpness(s.Image))
		}
		best.slide.Segment = seg
		slides = append(slides, best.slide)
	}
	return slides
}

// Ordinals returns the sample ordinals of slides, in order.
func Ordinals(slides []Slide) []int {
	return lo.Map(slides, func(s Slide, _ int) int { return s.Ordinal })
}
