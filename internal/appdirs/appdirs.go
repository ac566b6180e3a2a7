// Package appdirs decides where configuration, logs, task output and the
// task database live.
package appdirs

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	PortableEnv = "SLIDEEXTRACTOR_PORTABLE"

	appName        = "SlideExtractor"
	configFileName = "config.toml"
)

type Paths struct {
	Portable   bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	OutputDir  string
	CacheDir   string
}

type resolveDeps struct {
	goos          string
	getenv        func(string) string
	executable    func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}

func Resolve() (Paths, error) {
	return resolve(resolveDeps{
		goos:          runtime.GOOS,
		getenv:        os.Getenv,
		executable:    os.Executable,
		userConfigDir: os.UserConfigDir,
		userCacheDir:  os.UserCacheDir,
	})
}

// resolve picks one of three layouts: portable (next to the executable,
// also the Windows default), per-user directories, or relative paths when
// the user directories are unavailable.
func resolve(rawDeps resolveDeps) (Paths, error) {
	deps := withDefaults(rawDeps)
	if deps.goos == "windows" || isPortableEnabled(deps.getenv(PortableEnv)) {
		return resolvePortable(deps)
	}
	return resolveUser(deps), nil
}

func withDefaults(deps resolveDeps) resolveDeps {
	if deps.goos == "" {
		deps.goos = runtime.GOOS
	}
	if deps.getenv == nil {
		deps.getenv = os.Getenv
	}
	if deps.executable == nil {
		deps.executable = os.Executable
	}
	if deps.userConfigDir == nil {
		deps.userConfigDir = os.UserConfigDir
	}
	if deps.userCacheDir == nil {
		deps.userCacheDir = os.UserCacheDir
	}
	return deps
}

func resolvePortable(deps resolveDeps) (Paths, error) {
	executablePath, err := deps.executable()
	if err != nil {
		return Paths{}, err
	}

	dataDir := filepath.Join(filepath.Dir(executablePath), "data")
	configDir := filepath.Join(dataDir, "config")
	return Paths{
		Portable:   true,
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(dataDir, "logs"),
		OutputDir:  filepath.Join(dataDir, "output"),
		CacheDir:   filepath.Join(dataDir, "cache"),
	}, nil
}

func resolveUser(deps resolveDeps) Paths {
	paths := relativePaths()

	if root, err := deps.userConfigDir(); err == nil && strings.TrimSpace(root) != "" {
		paths.ConfigDir = filepath.Join(root, appName)
		paths.ConfigFile = filepath.Join(paths.ConfigDir, configFileName)
	}
	if root, err := deps.userCacheDir(); err == nil && strings.TrimSpace(root) != "" {
		base := filepath.Join(root, appName)
		paths.LogDir = filepath.Join(base, "logs")
		paths.CacheDir = filepath.Join(base, "cache")
	}
	return paths
}

func relativePaths() Paths {
	configDir := "config"
	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     ".",
		OutputDir:  ".",
		CacheDir:   "cache",
	}
}

func isPortableEnabled(value string) bool {
	normalized := strings.TrimSpace(strings.ToLower(value))
	return normalized == "1" || normalized == "true"
}
