// Package rtcd runs robotics components inside execution contexts.
//
// Example usage:
//
//	cfg := rtcd.Config{Name: "arm", Kind: rtcd.KindPeriodic, Rate: 100}
//	err := rtcd.Run(ctx, cfg,
//	    rtcd.WithComponents(camera, planner),
//	    rtcd.WithLogger(log.NewZerologAdapter()),
//	)
//
// Run blocks until ctx is canceled. Use New for control over start, stop
// and the hosted execution context.
package rtcd

import (
	"context"
	"errors"

	daemon "github.com/bft-labs/rtcd/pkg/rtcd"
)

// Config holds the configuration of a Daemon.
type Config = daemon.Config

// Daemon hosts one execution context and its supporting services.
type Daemon = daemon.Daemon

// Option configures optional behavior of a Daemon.
type Option = daemon.Option

// Scheduling disciplines.
const (
	KindPeriodic = daemon.KindPeriodic
	KindExtTrig  = daemon.KindExtTrig
)

// Options re-exported from pkg/rtcd.
var (
	WithLogger       = daemon.WithLogger
	WithComponents   = daemon.WithComponents
	WithOwner        = daemon.WithOwner
	WithPlugin       = daemon.WithPlugin
	WithEventHandler = daemon.WithEventHandler
	WithObserver     = daemon.WithObserver
	WithRegistry     = daemon.WithRegistry
)

// New creates a stopped Daemon.
func New(cfg Config, opts ...Option) (*Daemon, error) {
	return daemon.New(cfg, opts...)
}

// Run creates a Daemon, runs it until ctx is canceled and releases it.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	d, err := daemon.New(cfg, opts...)
	if err != nil {
		return err
	}
	runErr := d.Run(ctx)
	return errors.Join(runErr, d.Close())
}
