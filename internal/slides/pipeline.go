package slides

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slide-extractor/log"
	"slide-extractor/pkg/imaging"
	"slide-extractor/pkg/video"
)

// analysed is a sample plus the per-frame work done on the decoding side.
type analysed struct {
	Sample
	prepared  *Prepared
	sharpness float64
}

// Result is the outcome of one extraction run. On success Slides may be
// empty; deciding whether that is a failure is up to the caller.
type Result struct {
	Slides      []Slide      `json:"slides"`
	Trace       []TracePoint `json:"trace"`
	Transitions []int        `json:"transitions"`
	Segments    []Segment    `json:"segments"`
	SampleCount int          `json:"sample_count"`
	Step        int          `json:"step"`
	Threshold   float64      `json:"threshold"`
	Info        video.Info   `json:"info"`
}

// Images returns the slide frames in order.
func (r *Result) Images() []image.Image {
	out := make([]image.Image, len(r.Slides))
	for i, s := range r.Slides {
		out[i] = s.Image
	}
	return out
}

// Extractor runs the sampling, detection and selection stages.
type Extractor struct {
	opts Options
}

func NewExtractor(opts Options) (*Extractor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{opts: opts}, nil
}

func (e *Extractor) Options() Options { return e.opts }

// Extract streams src through the pipeline. One goroutine decodes, blurs
// and scores frames; a second one compares neighbours, debounces
// transitions and keeps the running segment champion.
func (e *Extractor) Extract(ctx context.Context, src video.Source) (*Result, error) {
	started := time.Now()
	info := src.Info()
	opts := e.opts
	step := 1
	if info.FPS > 0 {
		step = Step(info.FPS, opts.Interval)
	}
	total := EstimateSamples(info.FrameCount, step)
	minGap := MinFramesBetween(opts.MinSlideDuration, opts.Interval)

	log.GetLogger().Info("slide extraction started",
		zap.String("video", info.String()),
		zap.Float64("interval", opts.Interval),
		zap.Int("step", step),
		zap.Int("expected_samples", total),
		zap.Float64("threshold", opts.Threshold),
		zap.Int("min_frames_between", minGap))
	e.report(StageSampling, 0, total)

	eg, ctx := errgroup.WithContext(ctx)
	frames := make(chan analysed, 4)

	eg.Go(func() error {
		defer close(frames)
		_, err := Stream(ctx, src, opts.Interval, func(s Sample) error {
			gray := imaging.Luminance(s.Image)
			a := analysed{
				Sample:    s,
				prepared:  prepareGray(gray),
				sharpness: sharpnessOf(gray),
			}
			select {
			case frames <- a:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		return err
	})

	result := &Result{
		Step:      step,
		Threshold: opts.Threshold,
		Info:      info,
	}
	eg.Go(func() error {
		var (
			prev      *Prepared
			debouncer = Debouncer{Gap: minGap}
			best      champion
			segStart  int
			n         int
		)
		closeSegment := func(end int) {
			if !best.set {
				return
			}
			seg := Segment{Start: segStart, End: end}
			best.slide.Segment = seg
			result.Segments = append(result.Segments, seg)
			result.Slides = append(result.Slides, best.slide)
			best = champion{}
			segStart = end
		}

		for f := range frames {
			if prev != nil {
				score, err := Compare(prev, f.prepared)
				if err != nil {
					return err
				}
				result.Trace = append(result.Trace, TracePoint{
					Ordinal:   f.Ordinal,
					Timestamp: f.Timestamp,
					Score:     score,
				})
				if score < opts.Threshold && debouncer.Offer(f.Ordinal) {
					result.Transitions = append(result.Transitions, f.Ordinal)
					closeSegment(f.Ordinal)
				}
			}
			best.offer(f.Sample, f.sharpness)
			prev = f.prepared
			n++
			e.report(StageAnalyzing, n, max(total, n))
		}
		closeSegment(n)
		result.SampleCount = n
		return nil
	})

	err := eg.Wait()
	if err == nil && result.SampleCount < 2 {
		err = insufficientFrames(result.SampleCount, opts.Interval)
	}
	if err != nil {
		log.GetLogger().Error("slide extraction failed", zap.Error(err))
		return nil, err
	}

	e.report(StageDone, result.SampleCount, result.SampleCount)
	log.GetLogger().Info("slide extraction finished",
		zap.Int("samples", result.SampleCount),
		zap.Int("transitions", len(result.Transitions)),
		zap.Int("slides", len(result.Slides)),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}

func (e *Extractor) report(stage string, current, total int) {
	if e.opts.Progress != nil {
		e.opts.Progress(Progress{Stage: stage, Current: current, Total: total})
	}
}

// Extract runs a one-off extraction with opts.
func Extract(ctx context.Context, src video.Source, opts Options) (*Result, error) {
	e, err := NewExtractor(opts)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, src)
}
