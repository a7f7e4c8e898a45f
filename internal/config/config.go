// Package config loads server settings from defaults, an optional TOML file,
// and environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

const (
	// EnvConfig names an explicit config file.
	EnvConfig = "IMAGEMAP_MCP_CONFIG"
	// EnvLogLevel overrides log_level.
	EnvLogLevel = "IMAGEMAP_MCP_LOG_LEVEL"
	// EnvStateDir overrides state_dir.
	EnvStateDir = "IMAGEMAP_MCP_STATE_DIR"
	// EnvPlaceholders overrides placeholders ("true"/"false").
	EnvPlaceholders = "IMAGEMAP_MCP_PLACEHOLDERS"

	appName = "imagemap-mcp"
)

// Config holds the server configuration.
type Config struct {
	// LogLevel is a zerolog level name: trace, debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogFormat is "json" or "console".
	LogFormat string `toml:"log_format"`

	// StateDir is where the last document is persisted. Empty keeps state
	// in memory only.
	StateDir string `toml:"state_dir"`

	// OCRLanguage is the Tesseract language used for name suggestions.
	OCRLanguage string `toml:"ocr_language"`

	// PreviewMaxWidth caps the width of rendered previews in pixels.
	PreviewMaxWidth int `toml:"preview_max_width"`

	// DetectMinAreaPercent is the smallest suggested region, as a percentage
	// of the image area.
	DetectMinAreaPercent float64 `toml:"detect_min_area_percent"`

	// Placeholders is the default for export when a caller does not say.
	Placeholders bool `toml:"placeholders"`
}

// Default returns a configuration with default values.
func Default() *Config {
	stateDir := ""
	if dir, err := os.UserConfigDir(); err == nil {
		stateDir = filepath.Join(dir, appName, "state")
	}
	return &Config{
		LogLevel:             "info",
		LogFormat:            "json",
		StateDir:             stateDir,
		OCRLanguage:          "eng",
		PreviewMaxWidth:      1024,
		DetectMinAreaPercent: 0.5,
		Placeholders:         true,
	}
}

// DefaultPath returns the config file location used when EnvConfig is unset.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.toml")
}

// Load builds the configuration: defaults, then the file named by EnvConfig
// (or DefaultPath if that exists), then environment overrides. A missing
// default file is not an error; a missing explicit file is.
func Load() (*Config, error) {
	cfg := Default()

	path, explicit := os.LookupEnv(EnvConfig)
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a TOML file into c. Keys absent from the file keep their
// current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvStateDir); ok {
		c.StateDir = v
	}
	if v := os.Getenv(EnvPlaceholders); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Placeholders = b
		}
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.PreviewMaxWidth <= 0 {
		return fmt.Errorf("preview_max_width must be positive, got %d", c.PreviewMaxWidth)
	}
	if c.DetectMinAreaPercent < 0 || c.DetectMinAreaPercent > 100 {
		return fmt.Errorf("detect_min_area_percent must be within 0-100, got %g", c.DetectMinAreaPercent)
	}
	if c.OCRLanguage == "" {
		return errors.New("ocr_language must not be empty")
	}
	return nil
}

// Save writes c as TOML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
