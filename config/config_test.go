package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigPath(t *testing.T, path string) {
	t.Helper()
	old := resolveConfigPath
	oldConf := Conf
	resolveConfigPath = func() (string, error) { return path, nil }
	t.Cleanup(func() {
		resolveConfigPath = old
		Conf = oldConf
	})
}

func TestLoadOrCreateConfigMissingCreatesDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config", "config.toml")
	useConfigPath(t, configPath)
	Conf = Config{}

	created, err := LoadOrCreateConfig()
	require.NoError(t, err)
	assert.True(t, created)

	var got Config
	_, err = toml.DecodeFile(configPath, &got)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", got.Server.Host)
	assert.Equal(t, 8888, got.Server.Port)
	assert.Equal(t, 0.85, got.Extract.Threshold)
	assert.Equal(t, 0.5, got.Extract.Interval)
	assert.Equal(t, 2.0, got.Extract.MinSlideDuration)
	assert.Equal(t, 150, got.Extract.Dpi)
	assert.Equal(t, Default(), Conf)
}

func TestSaveConfigCreatesParentDirs(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "deep", "nest", "config.toml")
	useConfigPath(t, configPath)

	Conf = defaultConfig()
	Conf.Server.Port = 9999
	require.NoError(t, SaveConfig())

	var got Config
	_, err := toml.DecodeFile(configPath, &got)
	require.NoError(t, err)
	assert.Equal(t, 9999, got.Server.Port)
}

func TestLoadOrCreateConfigLoadsExisting(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	useConfigPath(t, configPath)

	content := `
[server]
host = "0.0.0.0"
port = 9000

[extract]
threshold = 0.7
rotate = 90
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	created, err := LoadOrCreateConfig()
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, "0.0.0.0", Conf.Server.Host)
	assert.Equal(t, 9000, Conf.Server.Port)
	assert.Equal(t, 0.7, Conf.Extract.Threshold)
	assert.Equal(t, 90, Conf.Extract.Rotate)
	// keys absent from the file keep their defaults
	assert.Equal(t, 0.5, Conf.Extract.Interval)
	assert.Equal(t, 150, Conf.Extract.Dpi)
}

func TestLoadConfigFileRejectsBadToml(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	useConfigPath(t, configPath)
	require.NoError(t, os.WriteFile(configPath, []byte("[server\nport = "), 0o644))

	_, err := LoadOrCreateConfig()
	assert.Error(t, err)
}

func TestCheckConfig(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.toml"))

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "threshold above range", mutate: func(c *Config) { c.Extract.Threshold = 1.2 }, wantErr: "extract.threshold"},
		{name: "threshold zero", mutate: func(c *Config) { c.Extract.Threshold = 0 }, wantErr: "extract.threshold"},
		{name: "interval zero", mutate: func(c *Config) { c.Extract.Interval = 0 }, wantErr: "extract.interval"},
		{name: "negative min duration", mutate: func(c *Config) { c.Extract.MinSlideDuration = -0.5 }, wantErr: "min_slide_duration"},
		{name: "rotation", mutate: func(c *Config) { c.Extract.Rotate = 45 }, wantErr: "extract.rotate"},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "queue without redis", mutate: func(c *Config) { c.Queue.Enabled = true; c.Queue.RedisAddr = "" }, wantErr: "redis_addr"},
		{name: "oss without bucket", mutate: func(c *Config) {
			c.Oss = Oss{Enabled: true, Region: "cn-hangzhou", AccessKeyId: "id", AccessKeySecret: "secret"}
		}, wantErr: "oss.bucket"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			Conf = defaultConfig()
			tc.mutate(&Conf)
			err := CheckConfig()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
