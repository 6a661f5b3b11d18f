// Package config loads the engine configuration file and applies defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds engine-wide settings. Every field has a working default so
// a missing config file is not an error.
type Config struct {
	// DataDir is the root for flows, run logs, version histories,
	// cookies, and artifacts.
	DataDir string `yaml:"data_dir"`

	// Headless controls whether launched browsers run without a window.
	Headless bool `yaml:"headless"`

	// AttachEndpoint, when set, makes the engine attach to an already
	// running browser over CDP instead of launching one.
	AttachEndpoint string `yaml:"attach_endpoint"`

	// SelectorTimeoutMs bounds the per-candidate visibility wait during
	// selector resolution.
	SelectorTimeoutMs int `yaml:"selector_timeout_ms"`

	// StepMaxRetries is the retry budget per step beyond the first try.
	StepMaxRetries int `yaml:"step_max_retries"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:           ".reflow",
		Headless:          true,
		SelectorTimeoutMs: 4000,
		StepMaxRetries:    2,
		LogLevel:          "info",
	}
}

// Load reads the config file at path, merging it over the defaults. A
// missing file returns the defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.SelectorTimeoutMs <= 0 {
		cfg.SelectorTimeoutMs = Default().SelectorTimeoutMs
	}
	if cfg.StepMaxRetries < 0 {
		cfg.StepMaxRetries = Default().StepMaxRetries
	}
	return cfg, nil
}

// SelectorTimeout returns the resolver's visibility wait as a duration.
func (c Config) SelectorTimeout() time.Duration {
	return time.Duration(c.SelectorTimeoutMs) * time.Millisecond
}

// FlowsDir, RunsDir, VersionsDir, CookiesDir, and ArtifactsDir locate the
// engine's on-disk areas under DataDir.
func (c Config) FlowsDir() string     { return filepath.Join(c.DataDir, "flows") }
func (c Config) RunsDir() string      { return filepath.Join(c.DataDir, "runs") }
func (c Config) VersionsDir() string  { return filepath.Join(c.DataDir, "versions") }
func (c Config) CookiesDir() string   { return filepath.Join(c.DataDir, "cookies") }
func (c Config) ArtifactsDir() string { return filepath.Join(c.DataDir, "artifacts") }
