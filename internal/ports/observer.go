package ports

import (
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
)

// Observer receives execution events from an execution context. Methods are
// called on the scheduling goroutine and must not block.
type Observer interface {
	// CycleCompleted reports the duration of one complete cycle and whether
	// it exceeded the configured period.
	CycleCompleted(ec string, elapsed time.Duration, overrun bool)

	// StateChanged reports a participant moving between lifecycle states.
	StateChanged(ec, component string, from, to rtc.LifeCycleState)

	// CallbackFailed reports a component callback returning an error.
	CallbackFailed(ec, component, callback string, err error)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) CycleCompleted(string, time.Duration, bool)                          {}
func (NoopObserver) StateChanged(string, string, rtc.LifeCycleState, rtc.LifeCycleState) {}
func (NoopObserver) CallbackFailed(string, string, string, error)                        {}
