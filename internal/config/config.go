package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monify-labs/procwatch/internal/errs"
)

const (
	// Sampling defaults
	DefaultInterval   = 200 * time.Millisecond
	DefaultIterations = 10
	HistorySize       = 120
	RefreshInterval   = 2 * time.Second

	// Export settings
	ExportTimeout = 10 * time.Second

	// Environment file path
	EnvFilePath = "/etc/procwatch/env"
)

// Build info (injected at build time via ldflags)
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Config holds user-tunable settings loaded from the YAML config file
type Config struct {
	DefaultInterval   time.Duration `yaml:"default_interval"`
	DefaultIterations int           `yaml:"default_iterations"`
	HistorySize       int           `yaml:"history_size"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`     // text, json
	DefaultFormat     string        `yaml:"default_format"` // text, json, yaml
	ExportToken       string        `yaml:"export_token,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DefaultInterval:   DefaultInterval,
		DefaultIterations: DefaultIterations,
		HistorySize:       HistorySize,
		RefreshInterval:   RefreshInterval,
		LogLevel:          "info",
		LogFormat:         "text",
		DefaultFormat:     "text",
	}
}

// Path returns the config file location: $PROCWATCH_CONFIG, else
// <user config dir>/procwatch/config.yaml
func Path() string {
	if p := os.Getenv("PROCWATCH_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "procwatch.yaml")
	}
	return filepath.Join(dir, "procwatch", "config.yaml")
}

// Load reads the YAML config at path on top of the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// File doesn't exist is not an error
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DefaultInterval < 0 {
		return fmt.Errorf("%w: default_interval must be >= 0", errs.ErrValidation)
	}
	if c.DefaultIterations <= 0 {
		return fmt.Errorf("%w: default_iterations must be > 0", errs.ErrValidation)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("%w: history_size must be > 0", errs.ErrValidation)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh_interval must be > 0", errs.ErrValidation)
	}
	switch c.DefaultFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: default_format must be text, json or yaml", errs.ErrValidation)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", errs.ErrValidation)
	}
	return nil
}

// applyEnv overrides file values with PROCWATCH_* variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("PROCWATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: PROCWATCH_INTERVAL: %v", errs.ErrValidation, err)
		}
		c.DefaultInterval = d
	}
	if v := os.Getenv("PROCWATCH_HISTORY_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PROCWATCH_HISTORY_SIZE: %v", errs.ErrValidation, err)
		}
		c.HistorySize = n
	}
	if v := os.Getenv("PROCWATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if IsDebugMode() {
		c.LogLevel = "debug"
	}
	if v := os.Getenv("PROCWATCH_EXPORT_TOKEN"); v != "" {
		c.ExportToken = v
	}
	return nil
}

// LoadEnvFile loads environment variables from /etc/procwatch/env
func LoadEnvFile() error {
	return loadEnvFile(EnvFilePath)
}

func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist is not an error
		}
		return err
	}

	// Parse each line as KEY=VALUE
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
			// Only set if not already set in environment
			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	}

	return nil
}

// IsDebugMode checks if debug mode is enabled
func IsDebugMode() bool {
	debug := os.Getenv("PROCWATCH_DEBUG")
	return debug == "true" || debug == "1"
}
