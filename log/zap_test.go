package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slide-extractor/internal/appdirs"
)

func setAppDirsResolverForTest(t *testing.T, resolver func() (appdirs.Paths, error)) {
	t.Helper()

	originalResolver := appDirsResolver
	originalLogger := Logger
	appDirsResolver = resolver
	t.Cleanup(func() {
		appDirsResolver = originalResolver
		Logger = originalLogger
	})
}

func TestResolveLogDir(t *testing.T) {
	t.Run("uses resolved log dir", func(t *testing.T) {
		expectedDir := filepath.Join("tmp", "logs")
		setAppDirsResolverForTest(t, func() (appdirs.Paths, error) {
			return appdirs.Paths{LogDir: expectedDir}, nil
		})

		logDir, err := ResolveLogDir()
		require.NoError(t, err)
		assert.Equal(t, expectedDir, logDir)
	})

	t.Run("falls back to current dir when empty", func(t *testing.T) {
		setAppDirsResolverForTest(t, func() (appdirs.Paths, error) {
			return appdirs.Paths{LogDir: " \t "}, nil
		})

		logDir, err := ResolveLogDir()
		require.NoError(t, err)
		assert.Equal(t, ".", logDir)
	})

	t.Run("returns resolver error", func(t *testing.T) {
		setAppDirsResolverForTest(t, func() (appdirs.Paths, error) {
			return appdirs.Paths{}, errors.New("resolve failed")
		})

		_, err := ResolveLogDir()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "resolve failed")
	})
}

func TestInitLoggerCreatesLogFile(t *testing.T) {
	targetLogDir := filepath.Join(t.TempDir(), "data", "logs")
	setAppDirsResolverForTest(t, func() (appdirs.Paths, error) {
		return appdirs.Paths{LogDir: targetLogDir}, nil
	})

	InitLogger()
	require.NotNil(t, GetLogger())

	GetLogger().Info("logger test line")
	_ = GetLogger().Sync()

	_, err := os.Stat(filepath.Join(targetLogDir, logFileName))
	assert.NoError(t, err)

	path, err := ResolveLogFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(targetLogDir, logFileName), path)
}

func TestGetLoggerBeforeInitIsNoop(t *testing.T) {
	setAppDirsResolverForTest(t, appdirs.Resolve)
	Logger = nil

	l := GetLogger()
	require.NotNil(t, l)
	assert.Same(t, l, GetLogger())
	l.Info("dropped")
}
