// Package deps locates the external programs the extractor shells out to
// and reports on them.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"slide-extractor/config"
	"slide-extractor/internal/storage"
	"slide-extractor/log"
)

type Tier string

const (
	TierMust     Tier = "must"
	TierOptional Tier = "optional"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
	StatusError   Status = "error"
)

type Source string

const (
	SourceConfig   Source = "config"
	SourceLookPath Source = "lookpath"
)

type Spec struct {
	ID             string
	Command        string
	Tier           Tier
	ConfiguredPath string
	Hint           string
}

type State struct {
	Spec
	ResolvedPath string
	Status       Status
	Source       Source
	Error        string
}

// PathResolver finds executables. The function fields are swapped in tests.
type PathResolver struct {
	LookPath func(file string) (string, error)
	AbsPath  func(path string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
}

func NewPathResolver() PathResolver {
	return PathResolver{
		LookPath: exec.LookPath,
		AbsPath:  filepath.Abs,
		Stat:     os.Stat,
	}
}

// Resolve prefers an explicitly configured path and falls back to PATH.
// A configured path that cannot be found is reported, not silently
// replaced by the PATH binary.
func (r PathResolver) Resolve(spec Spec) State {
	state := State{Spec: spec}
	configured := strings.TrimSpace(spec.ConfiguredPath)

	if configured == "" {
		state.Source = SourceLookPath
		resolved, err := r.LookPath(spec.Command)
		if err != nil {
			state.Error = err.Error()
			state.Status = statusFor(err)
			return state
		}
		state.Status = StatusOK
		state.ResolvedPath = resolved
		return state
	}

	state.Source = SourceConfig
	resolved, err := r.resolveConfigured(configured)
	if err == nil {
		state.Status = StatusOK
		state.ResolvedPath = resolved
		return state
	}
	state.ResolvedPath = configured
	if abs, absErr := r.AbsPath(configured); absErr == nil {
		state.ResolvedPath = abs
	}
	state.Error = err.Error()
	state.Status = statusFor(err)
	return state
}

func (r PathResolver) resolveConfigured(configured string) (string, error) {
	if resolved, err := r.LookPath(configured); err == nil {
		return resolved, nil
	}
	abs, err := r.AbsPath(configured)
	if err != nil {
		return "", err
	}
	if _, err = r.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// Inventory lists the programs used for decoding and probing.
func Inventory(bin config.Bin) []Spec {
	return []Spec{
		{
			ID:             "ffmpeg",
			Command:        "ffmpeg",
			Tier:           TierMust,
			ConfiguredPath: bin.Ffmpeg,
			Hint:           "Required to decode video frames. Set [bin].ffmpeg if it is not on PATH.",
		},
		{
			ID:             "ffprobe",
			Command:        "ffprobe",
			Tier:           TierMust,
			ConfiguredPath: bin.Ffprobe,
			Hint:           "Required to read frame rate and frame count. Usually installed alongside ffmpeg.",
		},
	}
}

func ResolveAll(specs []Spec, resolver PathResolver) []State {
	states := make([]State, 0, len(specs))
	for _, spec := range specs {
		states = append(states, resolver.Resolve(spec))
	}
	return states
}

var pathResolver = NewPathResolver()

// CheckDependency resolves ffmpeg and ffprobe from config.Conf, records
// the results in storage, and fails when a required program is missing.
func CheckDependency() error {
	states := ResolveAll(Inventory(config.Conf.Bin), pathResolver)
	var missing []string
	for _, s := range states {
		switch s.ID {
		case "ffmpeg":
			if s.Status == StatusOK {
				storage.FfmpegPath = s.ResolvedPath
			}
		case "ffprobe":
			if s.Status == StatusOK {
				storage.FfprobePath = s.ResolvedPath
			}
		}
		if s.Status != StatusOK && s.Tier == TierMust {
			missing = append(missing, s.ID)
			log.GetLogger().Error("required dependency unavailable",
				zap.String("id", s.ID),
				zap.String("status", string(s.Status)),
				zap.String("path", s.ResolvedPath),
				zap.String("error", s.Error))
			continue
		}
		log.GetLogger().Debug("dependency resolved",
			zap.String("id", s.ID),
			zap.String("path", s.ResolvedPath),
			zap.String("source", string(s.Source)))
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required programs: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Report renders states for the --diagnose flag.
func Report(states []State) string {
	if len(states) == 0 {
		return "No dependencies to diagnose."
	}

	var b strings.Builder
	b.WriteString("Dependency status")
	for _, s := range states {
		resolved := strings.TrimSpace(s.ResolvedPath)
		if resolved == "" {
			resolved = "unknown"
		}
		source := strings.TrimSpace(string(s.Source))
		if source == "" {
			source = "n/a"
		}

		fmt.Fprintf(&b, "\n- %s [%s]: %s | path=%s | source=%s", s.ID, strings.ToUpper(string(s.Tier)), s.Status, resolved, source)
		if s.Error != "" {
			b.WriteString("\n  error: " + s.Error)
		}
		if s.Hint != "" && s.Status != StatusOK {
			b.WriteString("\n  hint: " + s.Hint)
		}
	}
	return b.String()
}

func statusFor(err error) Status {
	if isMissingPathError(err) {
		return StatusMissing
	}
	return StatusError
}

func isMissingPathError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "not found") || strings.Contains(message, "cannot find")
}
