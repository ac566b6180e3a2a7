package output

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slide-extractor/log"
)

// WriteImages saves every slide as dir/slide_NNN.png, creating dir when
// missing. It returns the written paths in slide order.
func WriteImages(ctx context.Context, dir string, images []image.Image, rotate int) ([]string, error) {
	frames, err := prepare(images, rotate)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, encodeFailed(err)
	}

	paths := make([]string, len(frames))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, img := range frames {
		paths[i] = filepath.Join(dir, ImageName(i+1))
		path := paths[i]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writePNG(path, img)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.GetLogger().Info("slide images written", zap.String("dir", dir), zap.Int("count", len(paths)))
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return encodeFailed(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return encodeFailed(fmt.Errorf("encode %s: %w", filepath.Base(path), err))
	}
	if err := f.Close(); err != nil {
		return encodeFailed(err)
	}
	return nil
}
