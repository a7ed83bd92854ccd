package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for background goroutines
// during shutdown.
const ShutdownTimeout = 30 * time.Second

// RunState is the run state of an execution context or of the daemon.
type RunState int

const (
	RunStopped RunState = iota
	RunStarting
	RunRunning
	RunStopping
	RunCrashed
)

// String returns a human-readable representation of the state.
func (s RunState) String() string {
	switch s {
	case RunStopped:
		return "Stopped"
	case RunStarting:
		return "Starting"
	case RunRunning:
		return "Running"
	case RunStopping:
		return "Stopping"
	case RunCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// runTransitions lists the valid targets of each state. Refusals from a
// stopped or crashed state report ErrNotRunning, all others ErrAlreadyRunning.
var runTransitions = map[RunState][]RunState{
	RunStopped:  {RunStarting},
	RunStarting: {RunRunning, RunStopping, RunCrashed},
	RunRunning:  {RunStopping, RunCrashed},
	RunStopping: {RunStopped, RunCrashed},
	RunCrashed:  {RunStarting},
}

// EventEmitter is called when the run state changes.
type EventEmitter interface {
	OnStateChange(previous, current RunState, reason string)
}

// Lifecycle tracks a run state and the background goroutines that belong
// to it.
type Lifecycle struct {
	mu      sync.RWMutex
	state   RunState
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle in RunStopped.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	if logger == nil {
		logger = ports.Named(nil, "")
	}
	return &Lifecycle{
		state:   RunStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current run state.
func (l *Lifecycle) State() RunState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next when the transition is valid.
func (l *Lifecycle) TransitionTo(next RunState, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !validRunTransition(prev, next) {
		l.mu.Unlock()
		if prev == RunStopped || prev == RunCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.state = next
	l.mu.Unlock()

	// Emit outside of the lock.
	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Debug("run state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

func validRunTransition(from, to RunState) bool {
	for _, s := range runTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	s := l.State()
	return s == RunStopped || s == RunCrashed
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == RunRunning || s == RunStarting
}

// SetCancel stores the cancel function of the running context.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel cancels the running context, if any.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn in a tracked goroutine.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all tracked goroutines.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
