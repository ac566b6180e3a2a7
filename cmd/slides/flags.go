package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"slide-extractor/config"
	"slide-extractor/internal/appdirs"
	"slide-extractor/internal/deps"
	"slide-extractor/internal/output"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultOutput = "output.pdf"

// cliOptions mirrors the command line. Extraction fields start from the
// [extract] config defaults.
type cliOptions struct {
	Input        string
	Output       string
	Threshold    float64
	Interval     float64
	MinDuration  float64
	SaveImages   bool
	Rotate       int
	Debug        bool
	ConfigPath   string
	ShowVersion  bool
	ShowDiagnose bool
}

var errUsage = errors.New("usage")

func newFlagSet(opts *cliOptions, stderr io.Writer) *flag.FlagSet {
	defaults := config.Default().Extract
	flags := flag.NewFlagSet("slides", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Detect slide changes in a video and write them to a PDF.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "usage: slides <input> [-o output.pdf] [options]")
		flags.PrintDefaults()
	}

	flags.StringVar(&opts.Output, "o", defaultOutput, "output PDF path")
	flags.StringVar(&opts.Output, "output", defaultOutput, "output PDF path")
	flags.Float64Var(&opts.Threshold, "threshold", defaults.Threshold, "similarity threshold; lower is less sensitive to change")
	flags.Float64Var(&opts.Interval, "interval", defaults.Interval, "sampling interval in seconds")
	flags.Float64Var(&opts.MinDuration, "min-duration", defaults.MinSlideDuration, "minimum time a slide stays on screen, in seconds")
	flags.BoolVar(&opts.SaveImages, "save-images", defaults.SaveImages, "also write each slide as a PNG")
	flags.IntVar(&opts.Rotate, "rotate", defaults.Rotate, "rotate output images by 0, 90, 180 or 270 degrees")
	flags.BoolVar(&opts.Debug, "debug", defaults.DebugTrace, "write the similarity trace next to the PDF and log verbosely")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file whose [extract] section supplies defaults")
	flags.BoolVar(&opts.ShowVersion, "version", false, "print version information")
	flags.BoolVar(&opts.ShowDiagnose, "diagnose", false, "print runtime diagnostics")
	return flags
}

// parseArgs accepts flags before and after the positional input.
func parseArgs(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	flags := newFlagSet(&opts, stderr)

	var positional []string
	for {
		if err := flags.Parse(args); err != nil {
			return opts, err
		}
		if flags.NArg() == 0 {
			break
		}
		positional = append(positional, flags.Arg(0))
		args = flags.Args()[1:]
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if opts.ConfigPath != "" {
		if err := config.LoadConfigFile(opts.ConfigPath); err != nil {
			return opts, err
		}
		applyConfigDefaults(&opts, config.Conf.Extract, set)
	}

	if opts.ShowVersion || opts.ShowDiagnose {
		return opts, nil
	}
	if len(positional) != 1 {
		flags.Usage()
		return opts, errUsage
	}
	opts.Input = positional[0]

	if err := opts.extract().Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// applyConfigDefaults fills every extraction option the user did not set
// explicitly from the config file.
func applyConfigDefaults(opts *cliOptions, extract config.Extract, set map[string]bool) {
	if !set["threshold"] {
		opts.Threshold = extract.Threshold
	}
	if !set["interval"] {
		opts.Interval = extract.Interval
	}
	if !set["min-duration"] {
		opts.MinDuration = extract.MinSlideDuration
	}
	if !set["save-images"] {
		opts.SaveImages = extract.SaveImages
	}
	if !set["rotate"] {
		opts.Rotate = extract.Rotate
	}
	if !set["debug"] {
		opts.Debug = extract.DebugTrace
	}
}

func (o cliOptions) extract() config.Extract {
	extract := config.Conf.Extract
	extract.Threshold = o.Threshold
	extract.Interval = o.Interval
	extract.MinSlideDuration = o.MinDuration
	extract.SaveImages = o.SaveImages
	extract.Rotate = o.Rotate
	extract.DebugTrace = o.Debug
	return extract
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(w io.Writer, opts cliOptions) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "version: %s\n", version)

	if wd, err := os.Getwd(); err == nil {
		fmt.Fprintf(w, "working_dir: %s\n", wd)
	} else {
		fmt.Fprintf(w, "working_dir: <error: %v>\n", err)
	}

	if dirs, err := appdirs.Resolve(); err == nil {
		fmt.Fprintf(w, "layout.portable: %t\n", dirs.Portable)
		printPath(w, "config", dirs.ConfigFile)
	} else {
		fmt.Fprintf(w, "layout: <error: %v>\n", err)
	}
	if opts.ConfigPath != "" {
		printPath(w, "config_override", opts.ConfigPath)
	}

	out := opts.Output
	if out == "" {
		out = defaultOutput
	}
	printPath(w, "output", out)
	printPath(w, "images", output.ImagesDirFor(out))

	fmt.Fprintln(w, deps.Report(deps.ResolveAll(deps.Inventory(config.Conf.Bin), deps.NewPathResolver())))
}

func printPath(w io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(w, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, absPath, err)
}
