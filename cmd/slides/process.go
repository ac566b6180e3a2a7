package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"slide-extractor/config"
	"slide-extractor/internal/output"
	"slide-extractor/internal/slides"
	apperrors "slide-extractor/pkg/errors"
	"slide-extractor/pkg/video"
)

// process extracts slides from src and writes every requested artifact,
// reporting each step on stdout.
func process(ctx context.Context, src video.Source, opts cliOptions, stdout io.Writer) error {
	info := src.Info()
	fmt.Fprintf(stdout, "Video: %.1fs, %.1ffps, %d frames\n", info.Duration, info.FPS, info.FrameCount)
	if info.FPS > 0 {
		fmt.Fprintf(stdout, "Sampling every %gs (%d frames)\n", opts.Interval, slides.Step(info.FPS, opts.Interval))
	}

	fmt.Fprintln(stdout, "Detecting slide changes...")
	res, err := slides.Extract(ctx, src, slides.Options{
		Threshold:        opts.Threshold,
		Interval:         opts.Interval,
		MinSlideDuration: opts.MinDuration,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Transitions detected: %d\n", len(res.Transitions))
	fmt.Fprintf(stdout, "Slides extracted: %d\n", len(res.Slides))
	if len(res.Slides) == 0 {
		return apperrors.ErrEmptyOutput
	}

	images := res.Images()
	if err := output.WritePDF(opts.Output, images, output.PDFOptions{
		DPI:    config.Conf.Extract.Dpi,
		Rotate: opts.Rotate,
		Title:  output.Stem(filepath.Base(opts.Output)),
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "PDF saved: %s (%d pages)\n", opts.Output, len(images))

	if opts.SaveImages {
		dir := output.ImagesDirFor(opts.Output)
		paths, err := output.WriteImages(ctx, dir, images, opts.Rotate)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Images saved: %s/ (%d files)\n", dir, len(paths))
	}

	if opts.Debug {
		csvPath := output.DebugPathFor(opts.Output, ".csv")
		if err := output.WriteTraceCSV(csvPath, res.Trace, res.Threshold); err != nil {
			return err
		}
		jsonPath := output.DebugPathFor(opts.Output, ".json")
		if err := output.WriteTraceJSON(jsonPath, output.NewTraceReport(res, opts.Interval)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Debug trace saved: %s, %s\n", csvPath, jsonPath)
	}
	return nil
}
