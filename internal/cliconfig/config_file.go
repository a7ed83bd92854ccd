package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Name           string   `toml:"name" yaml:"name"`
	Kind           string   `toml:"kind" yaml:"kind"`
	Rate           *float64 `toml:"rate" yaml:"rate"`
	Components     []string `toml:"components" yaml:"components"`
	Activate       *bool    `toml:"activate" yaml:"activate"`
	TickInterval   string   `toml:"tick_interval" yaml:"tick_interval"`
	StateDir       string   `toml:"state_dir" yaml:"state_dir"`
	StatusInterval string   `toml:"status_interval" yaml:"status_interval"`
	MetricsAddr    string   `toml:"metrics_addr" yaml:"metrics_addr"`
	LogLevel       string   `toml:"log_level" yaml:"log_level"`
	Duration       string   `toml:"duration" yaml:"duration"`
	Watch          *bool    `toml:"watch" yaml:"watch"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if IsYAML(path) {
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
		return fc, nil
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// IsYAML reports whether path names a YAML config file.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.rtcd/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rtcd", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", fc.Name, &cfg.Name)
	s.setString("kind", fc.Kind, &cfg.Kind)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setStrings("component", fc.Components, &cfg.Components)

	s.setFloat("rate", fc.Rate, &cfg.Rate)

	if err := s.setDuration("tick-interval", fc.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("status-interval", fc.StatusInterval, &cfg.StatusInterval); err != nil {
		return err
	}
	if err := s.setDuration("duration", fc.Duration, &cfg.Duration); err != nil {
		return err
	}

	s.setBool("activate", fc.Activate, &cfg.Activate)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
