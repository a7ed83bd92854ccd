package cliconfig

import (
	"context"
	"fmt"

	envconf "github.com/sethvargo/go-envconfig"
)

// EnvConfig holds the raw RTCD_* environment variables.
// Values stay strings so that unset and empty are treated alike.
type EnvConfig struct {
	Name           string   `env:"RTCD_NAME"`
	Kind           string   `env:"RTCD_KIND"`
	Rate           string   `env:"RTCD_RATE"`
	Components     []string `env:"RTCD_COMPONENTS"`
	Activate       string   `env:"RTCD_ACTIVATE"`
	TickInterval   string   `env:"RTCD_TICK_INTERVAL"`
	StateDir       string   `env:"RTCD_STATE_DIR"`
	StatusInterval string   `env:"RTCD_STATUS_INTERVAL"`
	MetricsAddr    string   `env:"RTCD_METRICS_ADDR"`
	LogLevel       string   `env:"RTCD_LOG_LEVEL"`
	Duration       string   `env:"RTCD_DURATION"`
	Watch          string   `env:"RTCD_WATCH"`
}

// LoadEnvConfig decodes RTCD_* variables from the process environment.
func LoadEnvConfig(ctx context.Context) (EnvConfig, error) {
	var ec EnvConfig
	if err := envconf.Process(ctx, &ec); err != nil {
		return ec, fmt.Errorf("decode environment: %w", err)
	}
	return ec, nil
}

// ApplyEnvConfig applies environment variables to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(ctx context.Context, cfg *Config, changed map[string]bool) error {
	ec, err := LoadEnvConfig(ctx)
	if err != nil {
		return err
	}
	return applyEnv(cfg, ec, changed)
}

func applyEnv(cfg *Config, ec EnvConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", ec.Name, &cfg.Name)
	s.setString("kind", ec.Kind, &cfg.Kind)
	s.setString("state-dir", ec.StateDir, &cfg.StateDir)
	s.setString("metrics-addr", ec.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", ec.LogLevel, &cfg.LogLevel)
	s.setStrings("component", ec.Components, &cfg.Components)

	if err := s.setFloatFromString("rate", ec.Rate, &cfg.Rate); err != nil {
		return err
	}
	if err := s.setDuration("tick-interval", ec.TickInterval, &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("status-interval", ec.StatusInterval, &cfg.StatusInterval); err != nil {
		return err
	}
	if err := s.setDuration("duration", ec.Duration, &cfg.Duration); err != nil {
		return err
	}

	s.setBoolFromString("activate", ec.Activate, &cfg.Activate)
	s.setBoolFromString("watch", ec.Watch, &cfg.Watch)

	return nil
}
