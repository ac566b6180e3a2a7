package video

import (
	"context"
	"image"
)

// Memory is a Source backed by a render function, used for synthetic
// videos and tests. Frames are rendered on demand, so long clips cost
// nothing until sampled.
type Memory struct {
	fps    float64
	count  int
	width  int
	height int
	render func(index int) image.Image
}

// NewMemory wraps a fixed list of frames.
func NewMemory(fps float64, frames ...image.Image) *Memory {
	return NewGenerated(fps, len(frames), func(i int) image.Image { return frames[i] })
}

// NewGenerated builds a source of count frames produced by render.
func NewGenerated(fps float64, count int, render func(index int) image.Image) *Memory {
	m := &Memory{fps: fps, count: count, render: render}
	if count > 0 {
		b := render(0).Bounds()
		m.width, m.height = b.Dx(), b.Dy()
	}
	return m
}

func (m *Memory) Info() Info {
	var duration float64
	if m.fps > 0 {
		duration = float64(m.count) / m.fps
	}
	return Info{
		FPS:        m.fps,
		FrameCount: m.count,
		Width:      m.width,
		Height:     m.height,
		Duration:   duration,
	}
}

func (m *Memory) Frame(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= m.count {
		return nil, ErrEndOfStream
	}
	return m.render(index), nil
}

func (m *Memory) Close() error { return nil }
