package rtcd

import (
	"fmt"
	"math"
	"time"

	"github.com/bft-labs/rtcd/internal/domain"
)

// Scheduling disciplines.
const (
	KindPeriodic = "periodic"
	KindExtTrig  = "exttrig"
)

// Config holds the configuration of a Daemon.
type Config struct {
	// Name of the execution context. Default: "rtcd".
	Name string

	// Kind selects the scheduling discipline. Default: KindPeriodic.
	Kind string

	// Rate in Hz. Zero runs cycles back to back.
	Rate float64

	// TickInterval makes the daemon trigger a KindExtTrig context itself.
	// Zero leaves triggering to Tick.
	TickInterval time.Duration

	// ActivateOnStart activates every participant once the context runs.
	ActivateOnStart bool

	// StateDir receives status.json. Empty disables the status reporter.
	StateDir string

	// StatusInterval between status snapshots. Default: 1 second.
	StatusInterval time.Duration

	// MetricsAddr is the listen address of the /metrics endpoint.
	// Empty disables the endpoint.
	MetricsAddr string
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "rtcd"
	}
	if c.Kind == "" {
		c.Kind = KindPeriodic
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = time.Second
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Kind {
	case KindPeriodic, KindExtTrig:
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidConfig, c.Kind)
	}
	if c.Rate < 0 || math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
		return fmt.Errorf("%w: rate %v", domain.ErrInvalidConfig, c.Rate)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("%w: negative tick interval", domain.ErrInvalidConfig)
	}
	if c.TickInterval > 0 && c.Kind != KindExtTrig {
		return fmt.Errorf("%w: tick interval requires kind %s", domain.ErrInvalidConfig, KindExtTrig)
	}
	return nil
}
