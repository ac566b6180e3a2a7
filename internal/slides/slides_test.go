package slides

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "slide-extractor/pkg/errors"
	"slide-extractor/pkg/imaging"
	"slide-extractor/pkg/video"
)

const (
	testW   = 32
	testH   = 24
	testFPS = 10.0
)

func flatFrame(v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, testW, testH))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 0xff
	}
	return img
}

func checkerFrame(cell int, lo, hi uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, testW, testH))
	for y := 0; y < testH; y++ {
		for x := 0; x < testW; x++ {
			v := lo
			if (x/cell+y/cell)%2 == 0 {
				v = hi
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	return img
}

// tenSeconds renders a 10s clip at testFPS whose frame content is chosen by
// the frame index.
func tenSeconds(render func(frame int) image.Image) *video.Memory {
	return video.NewGenerated(testFPS, 100, render)
}

func extract(t *testing.T, src video.Source) *Result {
	t.Helper()
	res, err := Extract(context.Background(), src, DefaultOptions())
	require.NoError(t, err)
	return res
}

func TestStaticVideoYieldsOneSlide(t *testing.T) {
	frame := flatFrame(128)
	res := extract(t, tenSeconds(func(int) image.Image { return frame }))

	assert.Equal(t, 20, res.SampleCount)
	assert.Equal(t, 5, res.Step)
	assert.Len(t, res.Trace, 19)
	assert.Empty(t, res.Transitions)
	assert.Equal(t, []Segment{{Start: 0, End: 20}}, res.Segments)
	require.Len(t, res.Slides, 1)
	assert.Equal(t, 0, res.Slides[0].Ordinal)

	for _, p := range res.Trace {
		assert.Equal(t, 1.0, p.Score)
	}
}

func TestHardCutYieldsTwoSlides(t *testing.T) {
	before, after := flatFrame(40), flatFrame(200)
	res := extract(t, tenSeconds(func(i int) image.Image {
		if i < 50 {
			return before
		}
		return after
	}))

	require.Equal(t, []int{10}, res.Transitions)
	assert.Equal(t, []Segment{{0, 10}, {10, 20}}, res.Segments)
	require.Len(t, res.Slides, 2)
	assert.Equal(t, []int{0, 10}, Ordinals(res.Slides))
	assert.InDelta(t, 5.0, res.Slides[1].Timestamp, 1e-9)
	assert.Equal(t, 50, res.Slides[1].FrameIndex)
}

func TestFlickerBurstIsDebounced(t *testing.T) {
	dark, light := flatFrame(20), flatFrame(220)
	res := extract(t, tenSeconds(func(i int) image.Image {
		switch {
		case i < 50:
			return dark
		case i < 55:
			return light
		case i < 60:
			return dark
		default:
			return light
		}
	}))

	assert.Equal(t, []int{10, 11, 12}, RawTransitions(res.Trace, DefaultThreshold))
	assert.Equal(t, []int{10}, res.Transitions)
	assert.Len(t, res.Segments, 2)
	assert.Len(t, res.Slides, 2)
}

func TestExtractPicksSharpestFrameOfSegment(t *testing.T) {
	plain := flatFrame(125)
	detailed := checkerFrame(1, 20, 230)
	res := extract(t, tenSeconds(func(i int) image.Image {
		if i >= 15 && i < 20 {
			return detailed
		}
		return plain
	}))

	require.Len(t, res.Slides, 1, "blurred checkerboard should compare equal to its mean")
	assert.Equal(t, 3, res.Slides[0].Ordinal)
	assert.Greater(t, res.Slides[0].Sharpness, 0.0)
}

func TestExtractIsDeterministicAndMatchesBatchStages(t *testing.T) {
	palette := []uint8{30, 200, 60, 240, 10}
	src := tenSeconds(func(i int) image.Image {
		return flatFrame(palette[(i/23)%len(palette)])
	})

	first := extract(t, src)
	second := extract(t, src)
	assert.Equal(t, Ordinals(first.Slides), Ordinals(second.Slides))
	assert.Equal(t, first.Trace, second.Trace)

	samples, err := SampleAll(context.Background(), src, DefaultInterval)
	require.NoError(t, err)
	trace, err := BuildTrace(samples)
	require.NoError(t, err)
	transitions := Detect(trace, DefaultThreshold, MinFramesBetween(DefaultMinSlideDuration, DefaultInterval))
	segments := Segments(len(samples), transitions)
	batch := SelectBest(samples, segments)

	assert.Equal(t, trace, first.Trace)
	assert.Equal(t, transitions, first.Transitions)
	assert.Equal(t, segments, first.Segments)
	assert.Equal(t, Ordinals(batch), Ordinals(first.Slides))
}

// sequenced exposes a Memory source through the single-pass interface.
type sequenced struct {
	*video.Memory
}

func (s sequenced) Sample(ctx context.Context, step int, fn func(int, image.Image) error) error {
	for i := 0; ; i += step {
		img, err := s.Frame(ctx, i)
		if errors.Is(err, video.ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(i, img); err != nil {
			return err
		}
	}
}

func TestSequencerPathMatchesRandomAccess(t *testing.T) {
	before, after := flatFrame(40), flatFrame(200)
	mem := tenSeconds(func(i int) image.Image {
		if i < 70 {
			return before
		}
		return after
	})

	direct := extract(t, mem)
	streamed := extract(t, sequenced{mem})
	assert.Equal(t, direct.Trace, streamed.Trace)
	assert.Equal(t, Ordinals(direct.Slides), Ordinals(streamed.Slides))
	assert.Equal(t, []int{14}, streamed.Transitions)
}

func TestExtractErrors(t *testing.T) {
	frame := flatFrame(0)

	t.Run("single sample", func(t *testing.T) {
		_, err := Extract(context.Background(), video.NewMemory(testFPS, frame), DefaultOptions())
		assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientFrames), "got %v", err)
	})

	t.Run("interval too coarse", func(t *testing.T) {
		src := video.NewGenerated(testFPS, 10, func(int) image.Image { return frame })
		opts := DefaultOptions()
		opts.Interval = 2
		_, err := Extract(context.Background(), src, opts)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInsufficientFrames))
		assert.Contains(t, err.Error(), "smaller interval")
	})

	t.Run("unknown frame rate", func(t *testing.T) {
		_, err := Extract(context.Background(), video.NewMemory(0, frame, frame), DefaultOptions())
		assert.True(t, apperrors.Is(err, apperrors.CodeSourceUnavailable), "got %v", err)
	})

	t.Run("invalid interval", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Interval = 0
		_, err := NewExtractor(opts)
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidOptions))
	})

	t.Run("negative min duration", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MinSlideDuration = -1
		assert.Error(t, opts.Validate())
	})

	t.Run("dimension change mid stream", func(t *testing.T) {
		small := image.NewRGBA(image.Rect(0, 0, 16, 16))
		src := tenSeconds(func(i int) image.Image {
			if i >= 30 {
				return small
			}
			return frame
		})
		res, err := Extract(context.Background(), src, DefaultOptions())
		assert.Nil(t, res)
		assert.True(t, apperrors.Is(err, apperrors.CodeDimensionMismatch), "got %v", err)
	})

	t.Run("decode failure", func(t *testing.T) {
		src := &failingSource{Memory: tenSeconds(func(int) image.Image { return frame }), failAt: 40}
		res, err := Extract(context.Background(), src, DefaultOptions())
		assert.Nil(t, res)
		assert.True(t, apperrors.Is(err, apperrors.CodeDecodeFailed), "got %v", err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Extract(ctx, tenSeconds(func(int) image.Image { return frame }), DefaultOptions())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type failingSource struct {
	*video.Memory
	failAt int
}

func (f *failingSource) Frame(ctx context.Context, index int) (image.Image, error) {
	if index >= f.failAt {
		return nil, errors.New("corrupt packet")
	}
	return f.Memory.Frame(ctx, index)
}

func TestProgressIsReported(t *testing.T) {
	frame := flatFrame(90)
	var events []Progress
	opts := DefaultOptions()
	opts.Progress = func(p Progress) { events = append(events, p) }

	_, err := Extract(context.Background(), tenSeconds(func(int) image.Image { return frame }), opts)
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, StageSampling, events[0].Stage)
	last := events[len(events)-1]
	assert.Equal(t, StageDone, last.Stage)
	assert.Equal(t, 100, last.Percent())
	assert.Equal(t, 20, last.Current)
}

func TestSimilarity(t *testing.T) {
	a := checkerFrame(4, 10, 240)

	score, err := Similarity(a, a)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	_, err = Similarity(a, image.NewRGBA(image.Rect(0, 0, testW+1, testH)))
	assert.True(t, errors.Is(err, apperrors.ErrDimensionMismatch))

	score, err = Similarity(flatFrame(20), flatFrame(220))
	require.NoError(t, err)
	assert.Less(t, score, DefaultThreshold)
}

func TestSharpnessRanksBlurLower(t *testing.T) {
	sharp := checkerFrame(3, 0, 255)
	blurred := imaging.GaussianBlur(imaging.Luminance(sharp), 9, 0)

	assert.Greater(t, Sharpness(sharp), Sharpness(blurred))
	assert.Equal(t, 0.0, Sharpness(flatFrame(77)))
}

func TestStep(t *testing.T) {
	testCases := []struct {
		fps, interval float64
		want          int
	}{
		{30, 0.5, 15},
		{29.97, 0.5, 15},
		{25, 0.5, 13},
		{10, 0.01, 1},
		{60, 1, 60},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Step(tc.fps, tc.interval), "Step(%v, %v)", tc.fps, tc.interval)
	}
	assert.Equal(t, 20, EstimateSamples(100, 5))
	assert.Equal(t, 21, EstimateSamples(101, 5))
	assert.Equal(t, 0, EstimateSamples(0, 5))
}

func TestStreamDeliversEveryStepInOrder(t *testing.T) {
	src := tenSeconds(func(int) image.Image { return flatFrame(90) })

	var got []Sample
	n, err := Stream(context.Background(), src, 1.0, func(s Sample) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	require.Len(t, got, 10)
	for i, s := range got {
		assert.Equal(t, i, s.Ordinal)
		assert.Equal(t, i*10, s.FrameIndex)
		assert.InDelta(t, float64(i), s.Timestamp, 1e-9)
	}

	stop := errors.New("stop")
	n, err = Stream(context.Background(), src, 1.0, func(s Sample) error {
		if s.Ordinal == 3 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, n)

	_, err = Stream(context.Background(), src, 0, func(Sample) error { return nil })
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidOptions), "got %v", err)
}

func TestMinFramesBetween(t *testing.T) {
	assert.Equal(t, 4, MinFramesBetween(2.0, 0.5))
	assert.Equal(t, 3, MinFramesBetween(0.6, 0.2))
	assert.Equal(t, 1, MinFramesBetween(0.5, 0.5))
	assert.Equal(t, 3, MinFramesBetween(1.2, 0.5))
	assert.Equal(t, 3, MinFramesBetween(0.3, 0.1))
	assert.Equal(t, 0, MinFramesBetween(0, 0.5))
}

func TestRawTransitionsThresholdIsExclusive(t *testing.T) {
	trace := []TracePoint{
		{Ordinal: 1, Score: 0.85},
		{Ordinal: 2, Score: 0.849},
		{Ordinal: 3, Score: 1.0},
		{Ordinal: 4, Score: -0.2},
	}
	assert.Equal(t, []int{2, 4}, RawTransitions(trace, 0.85))
	assert.Empty(t, RawTransitions([]TracePoint{{Ordinal: 1, Score: 1}}, 0.999))
}

func TestDebounce(t *testing.T) {
	assert.Equal(t, []int{3, 7, 12}, Debounce([]int{3, 4, 5, 7, 8, 12}, 4))
	assert.Equal(t, []int{1, 2, 3}, Debounce([]int{1, 2, 3}, 0))
	assert.Nil(t, Debounce(nil, 4))
}

func TestDebounceNeverKeepsCloseTransitions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 2 + rng.Intn(80)
		trace := make([]TracePoint, n-1)
		for i := range trace {
			trace[i] = TracePoint{Ordinal: i + 1, Score: rng.Float64()}
		}
		threshold := rng.Float64()
		gap := rng.Intn(8)

		kept := Detect(trace, threshold, gap)
		for i := 1; i < len(kept); i++ {
			require.GreaterOrEqual(t, kept[i]-kept[i-1], gap)
		}
		if raw := RawTransitions(trace, threshold); len(raw) > 0 {
			require.Equal(t, raw[0], kept[0], "bursts anchor at their first sample")
		}
	}
}

func TestSegmentsPartition(t *testing.T) {
	testCases := []struct {
		name        string
		n           int
		transitions []int
		want        []Segment
	}{
		{"no transitions", 5, nil, []Segment{{0, 5}}},
		{"regular", 10, []int{3, 7}, []Segment{{0, 3}, {3, 7}, {7, 10}}},
		{"every sample", 3, []int{1, 2}, []Segment{{0, 1}, {1, 2}, {2, 3}}},
		{"zero and duplicate", 6, []int{0, 2, 2, 6}, []Segment{{0, 2}, {2, 6}}},
		{"unordered and out of range", 8, []int{5, 3, 12, -1}, []Segment{{0, 5}, {5, 8}}},
		{"empty", 0, []int{1}, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Segments(tc.n, tc.transitions)
			assert.Equal(t, tc.want, got)

			covered := 0
			for i, seg := range got {
				require.False(t, seg.Empty())
				require.Equal(t, covered, seg.Start, "segment %d must start where the previous ended", i)
				covered = seg.End
			}
			assert.Equal(t, max(tc.n, 0), covered)
		})
	}
}

func TestSelectBest(t *testing.T) {
	plain := flatFrame(100)
	sharp := checkerFrame(2, 0, 255)
	sharper := checkerFrame(1, 0, 255)
	samples := []Sample{
		{Ordinal: 0, Image: plain},
		{Ordinal: 1, Image: sharp},
		{Ordinal: 2, Image: sharp},
		{Ordinal: 3, Image: plain},
		{Ordinal: 4, Image: sharper},
	}

	slides := SelectBest(samples, []Segment{{0, 3}, {3, 3}, {3, 5}, {4, 9}})
	require.Len(t, slides, 2)
	assert.Equal(t, 1, slides[0].Ordinal, "ties keep the first sharpest sample")
	assert.Equal(t, Segment{0, 3}, slides[0].Segment)
	assert.Equal(t, 4, slides[1].Ordinal)
}
