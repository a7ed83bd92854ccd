package cliconfig

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/pkg/log"
)

// Scheduling disciplines selectable from the command line.
const (
	KindPeriodic = "periodic"
	KindExtTrig  = "exttrig"
)

// DefaultName is the execution context name used when none is configured.
const DefaultName = "rtcd"

// Config holds CLI configuration for rtcd.
type Config struct {
	Name string
	Kind string

	// Rate is the cycle frequency in Hz. Zero runs cycles back to back.
	Rate float64

	// Components lists demo component specs of the form type[:name][@arg].
	Components []string
	Activate   bool

	// TickInterval drives an exttrig context from an internal ticker.
	// Zero leaves triggering to the caller.
	TickInterval time.Duration

	StateDir       string
	StatusInterval time.Duration
	MetricsAddr    string
	LogLevel       string

	// Duration stops the run after the given time. Zero runs until interrupted.
	Duration time.Duration
	Watch    bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:           DefaultName,
		Kind:           KindPeriodic,
		Rate:           10,
		StatusInterval: time.Second,
		LogLevel:       "info",
		StateDir:       "", // Derived from the home directory during Validate
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Name == "" {
		c.Name = DefaultName
	}

	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	switch c.Kind {
	case "":
		c.Kind = KindPeriodic
	case KindPeriodic, KindExtTrig:
	default:
		return fmt.Errorf("%w: unknown kind %q (want %s or %s)", domain.ErrInvalidConfig, c.Kind, KindPeriodic, KindExtTrig)
	}

	if c.Rate < 0 || math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
		return fmt.Errorf("%w: rate must be a finite non-negative number", domain.ErrInvalidConfig)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("%w: tick interval must not be negative", domain.ErrInvalidConfig)
	}
	if c.TickInterval > 0 && c.Kind != KindExtTrig {
		return fmt.Errorf("%w: tick interval requires kind %s", domain.ErrInvalidConfig, KindExtTrig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidConfig)
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("%w: status interval must be positive", domain.ErrInvalidConfig)
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	comps := c.Components[:0:0]
	for _, spec := range c.Components {
		if spec = strings.TrimSpace(spec); spec != "" {
			comps = append(comps, spec)
		}
	}
	c.Components = comps

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}

	return nil
}

// DefaultStateDir returns ~/.rtcd, or "" when the home directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rtcd")
	}
	return ""
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings replaces a list if the new one is not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setFloat sets a float64 value from a pointer if not nil and flag not changed.
// Zero is a meaningful rate, so presence rather than sign decides.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
