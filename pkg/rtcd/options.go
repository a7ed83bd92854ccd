package rtcd

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/rtcd/internal/app"
	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/pkg/ec"
	"github.com/bft-labs/rtcd/pkg/log"
	"github.com/bft-labs/rtcd/pkg/rtc"
)

// State is the run state of a Daemon.
type State = app.RunState

// Daemon states.
const (
	StateStopped  = app.RunStopped
	StateStarting = app.RunStarting
	StateRunning  = app.RunRunning
	StateStopping = app.RunStopping
	StateCrashed  = app.RunCrashed
)

// EventHandler is notified when the daemon changes state. It is called
// synchronously and should return quickly.
type EventHandler = app.EventEmitter

// Logger is the interface for structured logging.
type Logger = log.Logger

// Status is a point-in-time snapshot of an execution context.
type Status = domain.ContextStatus

// Option configures optional behavior of a Daemon.
type Option func(*options)

// options holds the optional configuration for a Daemon instance.
type options struct {
	logger       log.Logger
	eventHandler EventHandler
	observer     ec.Observer
	registry     *prometheus.Registry
	plugins      []Plugin
	components   []rtc.Component
	owner        rtc.Component
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for daemon state changes.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithObserver sets an observer for execution events. It is ignored when
// metrics are enabled, which install their own observer.
func WithObserver(obs ec.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithRegistry registers the metrics collectors with reg instead of a
// private registry. The /metrics endpoint, if enabled, serves reg.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithPlugin registers a plugin to be initialized when the daemon starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithComponents adds participants to the execution context.
func WithComponents(comps ...rtc.Component) Option {
	return func(o *options) {
		o.components = append(o.components, comps...)
	}
}

// WithOwner binds c as the owner of the execution context.
func WithOwner(c rtc.Component) Option {
	return func(o *options) {
		o.owner = c
	}
}
