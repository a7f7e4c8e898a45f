package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "eng", cfg.OCRLanguage)
	assert.Equal(t, 1024, cfg.PreviewMaxWidth)
	assert.True(t, cfg.Placeholders)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_Merges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"debug\"\npreview_max_width = 640\n"), 0o644))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 640, cfg.PreviewMaxWidth)
	assert.Equal(t, "eng", cfg.OCRLanguage, "keys absent from the file keep defaults")
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = [unterminated"), 0o644))

	assert.Error(t, Default().LoadFile(path))
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n"), 0o644))

	t.Setenv(EnvConfig, path)
	t.Setenv(EnvLogLevel, "trace")
	t.Setenv(EnvStateDir, filepath.Join(dir, "state"))
	t.Setenv(EnvPlaceholders, "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "state"), cfg.StateDir)
	assert.False(t, cfg.Placeholders)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero preview width", func(c *Config) { c.PreviewMaxWidth = 0 }},
		{"negative area", func(c *Config) { c.DetectMinAreaPercent = -1 }},
		{"empty language", func(c *Config) { c.OCRLanguage = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.OCRLanguage = "deu"
	cfg.DetectMinAreaPercent = 2.5

	require.NoError(t, cfg.Save(path))

	loaded := &Config{}
	require.NoError(t, loaded.LoadFile(path))
	assert.Equal(t, cfg, loaded)
}
