package domain

import "errors"

// Domain errors represent error conditions of the rtcd daemon.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("rtcd: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("rtcd: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("rtcd: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("rtcd: invalid configuration")

	// ErrUnknownComponent is returned when a component spec names an
	// unknown component type.
	ErrUnknownComponent = errors.New("rtcd: unknown component type")
)
