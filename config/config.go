package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"slide-extractor/internal/appdirs"
	"slide-extractor/log"
)

type App struct {
	Proxy       string `toml:"proxy"`
	WorkerCount int    `toml:"worker_count"`
	QueueSize   int    `toml:"queue_size"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Extract holds the detection defaults used when a request leaves them out.
type Extract struct {
	Threshold        float64 `toml:"threshold"`
	Interval         float64 `toml:"interval"`
	MinSlideDuration float64 `toml:"min_slide_duration"`
	SaveImages       bool    `toml:"save_images"`
	Rotate           int     `toml:"rotate"`
	DebugTrace       bool    `toml:"debug_trace"`
	Dpi              int     `toml:"dpi"`
}

type Queue struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
}

type Oss struct {
	Enabled         bool   `toml:"enabled"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Bucket          string `toml:"bucket"`
	AccessKeyId     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
	Prefix          string `toml:"prefix"`
}

// Bin overrides the ffmpeg and ffprobe executables. Empty means PATH lookup.
type Bin struct {
	Ffmpeg  string `toml:"ffmpeg"`
	Ffprobe string `toml:"ffprobe"`
}

type Config struct {
	App     App     `toml:"app"`
	Server  Server  `toml:"server"`
	Extract Extract `toml:"extract"`
	Queue   Queue   `toml:"queue"`
	Oss     Oss     `toml:"oss"`
	Bin     Bin     `toml:"bin"`
}

var Conf = defaultConfig()

var resolveConfigPath = func() (string, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return dirs.ConfigFile, nil
}

func defaultConfig() Config {
	return Config{
		App: App{
			WorkerCount: 2,
			QueueSize:   64,
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Extract: Extract{
			Threshold:        0.85,
			Interval:         0.5,
			MinSlideDuration: 2.0,
			Dpi:              150,
		},
		Queue: Queue{
			RedisAddr:   "localhost:6379",
			Concurrency: 2,
		},
		Oss: Oss{
			Prefix: "slides/",
		},
	}
}

// Default returns a fresh copy of the built-in configuration.
func Default() Config {
	return defaultConfig()
}

func ResolveConfigPath() (string, error) {
	return resolveConfigPath()
}

// LoadOrCreateConfig loads the config file into Conf, writing the defaults
// first when the file does not exist. created reports the latter.
func LoadOrCreateConfig() (created bool, err error) {
	configPath, err := ResolveConfigPath()
	if err != nil {
		return false, fmt.Errorf("resolve config path: %w", err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		Conf = defaultConfig()
		if err := SaveConfig(); err != nil {
			return false, err
		}
		log.GetLogger().Info("default config created", zap.String("path", configPath))
		return true, nil
	} else if err != nil {
		return false, err
	}

	if err := LoadConfigFile(configPath); err != nil {
		return false, err
	}
	return false, nil
}

// LoadConfigFile decodes path over the defaults, so keys missing from the
// file keep their default values.
func LoadConfigFile(path string) error {
	loaded := defaultConfig()
	if _, err := toml.DecodeFile(path, &loaded); err != nil {
		log.GetLogger().Error("failed to decode config file", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	Conf = loaded
	log.GetLogger().Info("config loaded", zap.String("path", path))
	return nil
}

func SaveConfig() error {
	configPath, err := ResolveConfigPath()
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Conf); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(configPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// CheckConfig validates Conf. All problems are reported together.
func CheckConfig() error {
	return Conf.Validate()
}

func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if err := c.Extract.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Queue.Enabled && strings.TrimSpace(c.Queue.RedisAddr) == "" {
		errs = append(errs, errors.New("queue.redis_addr is required when the queue is enabled"))
	}
	if c.Oss.Enabled {
		for key, value := range map[string]string{
			"oss.region":            c.Oss.Region,
			"oss.bucket":            c.Oss.Bucket,
			"oss.access_key_id":     c.Oss.AccessKeyId,
			"oss.access_key_secret": c.Oss.AccessKeySecret,
		} {
			if strings.TrimSpace(value) == "" {
				errs = append(errs, fmt.Errorf("%s is required when oss is enabled", key))
			}
		}
	}
	return errors.Join(errs...)
}

func (e Extract) Validate() error {
	var errs []error
	if !(e.Threshold > 0 && e.Threshold < 1) {
		errs = append(errs, fmt.Errorf("extract.threshold must be in (0, 1), got %v", e.Threshold))
	}
	if !(e.Interval > 0) {
		errs = append(errs, fmt.Errorf("extract.interval must be > 0, got %v", e.Interval))
	}
	if !(e.MinSlideDuration >= 0) {
		errs = append(errs, fmt.Errorf("extract.min_slide_duration must be >= 0, got %v", e.MinSlideDuration))
	}
	switch e.Rotate {
	case 0, 90, 180, 270:
	default:
		errs = append(errs, fmt.Errorf("extract.rotate must be 0, 90, 180 or 270, got %d", e.Rotate))
	}
	if e.Dpi < 0 {
		errs = append(errs, fmt.Errorf("extract.dpi must be positive, got %d", e.Dpi))
	}
	return errors.Join(errs...)
}
