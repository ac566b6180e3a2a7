package slides

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"slide-extractor/pkg/video"
	apperrors "slide-extractor/pkg/errors"
)

// Step returns the frame stride for sampling every interval seconds.
func Step(fps, interval float64) int {
	k := int(math.Round(fps * interval))
	if k < 1 {
		return 1
	}
	return k
}

// EstimateSamples returns how many samples a source of frameCount frames
// yields at the given stride, or 0 when the count is unknown.
func EstimateSamples(frameCount, step int) int {
	if frameCount <= 0 || step <= 0 {
		return 0
	}
	return (frameCount + step - 1) / step
}

// Stream decodes frames 0, k, 2k, ... from src and hands them to fn in
// order, stopping at end of stream. It returns the number of samples
// delivered. Sources implementing video.Sequencer are read in one pass.
func Stream(ctx context.Context, src video.Source, interval float64, fn func(Sample) error) (int, error) {
	if !(interval > 0) {
		return 0, apperrors.WrapWithDetail(apperrors.CodeInvalidOptions, apperrors.ErrInvalidOptions.Message,
			fmt.Sprintf("interval must be > 0, got %v", interval), nil)
	}
	info := src.Info()
	if !(info.FPS > 0) {
		return 0, apperrors.WrapWithDetail(apperrors.CodeSourceUnavailable, apperrors.ErrSourceUnavailable.Message,
			"unknown frame rate", nil)
	}
	step := Step(info.FPS, interval)

	count := 0
	emit := func(frameIndex int, img image.Image) error {
		s := Sample{
			Ordinal:    count,
			FrameIndex: frameIndex,
			Timestamp:  float64(frameIndex) / info.FPS,
			Image:      img,
		}
		if err := fn(s); err != nil {
			return err
		}
		count++
		return nil
	}

	if seq, ok := src.(video.Sequencer); ok {
		// the decoded stream is authoritative; probed frame counts can be estimates
		if err := seq.Sample(ctx, step, emit); err != nil {
			return count, decodeError(err)
		}
		return count, nil
	}

	for idx := 0; info.FrameCount <= 0 || idx < info.FrameCount; idx += step {
		img, err := src.Frame(ctx, idx)
		if errors.Is(err, video.ErrEndOfStream) {
			break
		}
		if err != nil {
			return count, decodeError(err)
		}
		if err := emit(idx, img); err != nil {
			return count, err
		}
	}
	return count, nil
}

// SampleAll collects every sample into memory. It fails with
// InsufficientFrames when fewer than two samples are available.
func SampleAll(ctx context.Context, src video.Source, interval float64) ([]Sample, error) {
	var samples []Sample
	_, err := Stream(ctx, src, interval, func(s Sample) error {
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(samples) < 2 {
		return nil, insufficientFrames(len(samples), interval)
	}
	return samples, nil
}

func insufficientFrames(n int, interval float64) error {
	return apperrors.WrapWithDetail(apperrors.CodeInsufficientFrames, apperrors.ErrInsufficientFrames.Message,
		fmt.Sprintf("got %d sample(s) at %.2fs interval; try a smaller interval", n, interval), nil)
}

func decodeError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.CodeDecodeFailed, apperrors.ErrDecodeFailed.Message, err)
}
