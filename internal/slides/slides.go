// Package slides detects slide changes in a sampled video and picks the
// sharpest frame of every stable segment.
//
// The stages are plain functions over samples and traces (Stream,
// Similarity, RawTransitions, Debounce, Segments, SelectBest). Extractor
// runs them as a streaming pipeline that keeps only the look-back frame
// and the current segment champion in memory.
package slides

import (
	"fmt"
	"image"
	"math"

	apperrors "slide-extractor/pkg/errors"
)

const (
	DefaultThreshold        = 0.85
	DefaultInterval         = 0.5
	DefaultMinSlideDuration = 2.0
)

// Sample is a frame decoded at a sampling checkpoint.
type Sample struct {
	Ordinal    int // position in the sampled sequence
	FrameIndex int // index of the frame in the source video
	Timestamp  float64
	Image      image.Image
}

// TracePoint is the similarity between samples Ordinal-1 and Ordinal,
// recorded at the timestamp of sample Ordinal.
type TracePoint struct {
	Ordinal   int     `json:"ordinal"`
	Timestamp float64 `json:"timestamp"`
	Score     float64 `json:"score"`
}

// Segment is the half-open sample range [Start, End).
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Segment) Len() int { return s.End - s.Start }

func (s Segment) Empty() bool { return s.End <= s.Start }

// Slide is the representative frame of one segment.
type Slide struct {
	Image      image.Image `json:"-"`
	Ordinal    int         `json:"ordinal"`
	FrameIndex int         `json:"frame_index"`
	Timestamp  float64     `json:"timestamp"`
	Sharpness  float64     `json:"sharpness"`
	Segment    Segment     `json:"segment"`
}

// Options configures an extraction run.
type Options struct {
	// Threshold is the similarity below which a pair counts as a transition.
	Threshold float64
	// Interval is the sampling period in seconds.
	Interval float64
	// MinSlideDuration is the shortest time in seconds between two kept
	// transitions.
	MinSlideDuration float64
	// Progress, when set, is called from the analysis goroutine.
	Progress func(Progress)
}

func DefaultOptions() Options {
	return Options{
		Threshold:        DefaultThreshold,
		Interval:         DefaultInterval,
		MinSlideDuration: DefaultMinSlideDuration,
	}
}

// Validate checks the algorithmic preconditions. Threshold range is left to
// callers; values above 1 simply mark every pair as a transition.
func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0) {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidOptions, apperrors.ErrInvalidOptions.Message,
			fmt.Sprintf("threshold must be finite, got %v", o.Threshold), nil)
	}
	if !(o.Interval > 0) || math.IsInf(o.Interval, 0) {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidOptions, apperrors.ErrInvalidOptions.Message,
			fmt.Sprintf("interval must be > 0, got %v", o.Interval), nil)
	}
	if !(o.MinSlideDuration >= 0) || math.IsInf(o.MinSlideDuration, 0) {
		return apperrors.WrapWithDetail(apperrors.CodeInvalidOptions, apperrors.ErrInvalidOptions.Message,
			fmt.Sprintf("min slide duration must be >= 0, got %v", o.MinSlideDuration), nil)
	}
	return nil
}

// Stage names reported through Progress.
const (
	StageSampling  = "sampling"
	StageAnalyzing = "analyzing"
	StageDone      = "done"
)

// Progress reports how many samples have been analysed. Total is an
// estimate derived from the probed frame count and may be zero.
type Progress struct {
	Stage   string
	Current int
	Total   int
}

// Percent returns Current/Total as 0-100, or 0 when Total is unknown.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := p.Current * 100 / p.Total
	if pct > 100 {
		pct = 100
	}
	return pct
}
