package ec

import (
	"github.com/bft-labs/rtcd/internal/app"
	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/log"
)

// RunState is the run state of an execution context.
type RunState = app.RunState

// Run states reported to an EventHandler.
const (
	Stopped  = app.RunStopped
	Starting = app.RunStarting
	Running  = app.RunRunning
	Stopping = app.RunStopping
	Crashed  = app.RunCrashed
)

// EventHandler is notified of run state changes.
type EventHandler = app.EventEmitter

// Observer receives cycle timings, participant transitions and callback
// failures.
type Observer = ports.Observer

// Option configures an execution context.
type Option func(*options)

type options struct {
	name     string
	rate     float64
	logger   log.Logger
	observer Observer
	handler  EventHandler
}

func defaultOptions() options {
	return options{
		name:     "ec",
		logger:   log.NewNoopLogger(),
		observer: ports.NoopObserver{},
	}
}

// WithName sets the context name used in logs, metrics and status.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithRate sets the initial rate in Hz. Zero leaves the rate unset.
func WithRate(rate float64) Option {
	return func(o *options) {
		o.rate = rate
	}
}

// WithLogger sets the logger. Named child loggers are derived from it.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the observer for execution events.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithEventHandler sets the handler for run state changes.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}
