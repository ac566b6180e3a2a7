// Package video exposes decoded video frames as image.Image values.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrEndOfStream is returned by Frame when the index lies past the last
// decodable frame. It is a normal stop condition, not a failure.
var ErrEndOfStream = errors.New("video: end of stream")

// Info describes a video stream.
type Info struct {
	FPS        float64
	FrameCount int
	Width      int
	Height     int
	Duration   float64 // seconds
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d %.2ffps %d frames %.1fs", i.Width, i.Height, i.FPS, i.FrameCount, i.Duration)
}

// Source yields decoded frames by index.
type Source interface {
	Info() Info
	// Frame decodes the frame at index. Past the end it returns ErrEndOfStream.
	Frame(ctx context.Context, index int) (image.Image, error)
	Close() error
}

// Sequencer is implemented by sources that can decode every step-th frame
// in one sequential pass, which is much cheaper than repeated seeks.
// fn receives frames in increasing index order; a non-nil error from fn
// stops decoding and is returned.
type Sequencer interface {
	Sample(ctx context.Context, step int, fn func(index int, img image.Image) error) error
}
