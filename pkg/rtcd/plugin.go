package rtcd

import (
	"context"

	"github.com/bft-labs/rtcd/pkg/ec"
)

// Plugin extends a Daemon with optional functionality.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called by Start before the execution context starts.
	// ctx is canceled when the daemon stops.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called by Stop after the execution context has stopped.
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin gets to work with.
type PluginConfig struct {
	Name     string
	Kind     string
	StateDir string
	Context  ec.ExecutionContext
	Logger   Logger
}
