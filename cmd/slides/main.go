// Command slides detects slide changes in a recorded presentation and
// writes the slides to a PDF, optionally with a PNG set and a debug trace.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"slide-extractor/internal/deps"
	"slide-extractor/internal/storage"
	"slide-extractor/log"
	apperrors "slide-extractor/pkg/errors"
	"slide-extractor/pkg/video"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	if opts.ShowVersion || opts.ShowDiagnose {
		if opts.ShowVersion {
			printVersion(stdout)
		}
		if opts.ShowDiagnose {
			if opts.ShowVersion {
				fmt.Fprintln(stdout)
			}
			printDiagnose(stdout, opts)
		}
		return 0
	}

	log.InitConsoleLogger(opts.Debug)
	defer log.GetLogger().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := deps.CheckDependency(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fmt.Fprintln(stderr, "run with --diagnose for details")
		return 1
	}

	src, err := video.OpenFFmpeg(ctx, opts.Input, video.FFmpegOptions{
		FFmpegPath:  storage.FfmpegPath,
		FFprobePath: storage.FfprobePath,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: cannot open %s: %v\n", opts.Input, err)
		return 1
	}
	defer src.Close()

	if err := process(ctx, src, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", describe(err))
		return 1
	}
	return 0
}

// describe renders AppErrors with their detail and plain errors as is.
func describe(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Detail != "" {
		return appErr.Message + " (" + appErr.Detail + ")"
	}
	return err.Error()
}
