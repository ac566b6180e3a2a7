package log

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"slide-extractor/internal/appdirs"
)

var Logger *zap.Logger

const logFileName = "slides.log"

var (
	appDirsResolver = appdirs.Resolve
	nopOnce         sync.Once
	nopLogger       *zap.Logger
)

// InitLogger tees a JSON file core at debug level with a console core at
// info level.
func InitLogger() {
	logDir, err := ResolveLogDir()
	if err != nil {
		panic("failed to resolve log directory: " + err.Error())
	}

	if err = os.MkdirAll(logDir, 0o755); err != nil {
		panic("failed to create log directory: " + err.Error())
	}

	logFilePath := filepath.Join(logDir, logFileName)
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		panic("failed to open log file: " + err.Error())
	}

	Logger = zap.New(newCore(zapcore.AddSync(file), zapcore.AddSync(os.Stderr), zap.InfoLevel), zap.AddCaller())
}

// InitConsoleLogger logs to stderr only. The CLI uses it so a one-shot run
// leaves no files behind; verbose lowers the level to debug.
func InitConsoleLogger(verbose bool) {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stderr), level)
	Logger = zap.New(core)
}

func newCore(fileSyncer, consoleSyncer zapcore.WriteSyncer, consoleLevel zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileSyncer, zap.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), consoleSyncer, consoleLevel),
	)
}

func ResolveLogDir() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}

	logDir := strings.TrimSpace(dirs.LogDir)
	if logDir == "" {
		return ".", nil
	}

	return logDir, nil
}

func ResolveLogFilePath() (string, error) {
	logDir, err := ResolveLogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logDir, logFileName), nil
}

// GetLogger returns the global logger, or a no-op logger before
// initialisation so library packages can log unconditionally.
func GetLogger() *zap.Logger {
	if Logger != nil {
		return Logger
	}
	nopOnce.Do(func() { nopLogger = zap.NewNop() })
	return nopLogger
}
