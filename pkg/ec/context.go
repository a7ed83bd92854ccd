package ec

import (
	"context"
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
)

// ExecutionContext is the full surface shared by the disciplines in this
// package.
type ExecutionContext interface {
	rtc.ExecutionContextService

	Name() string
	RunState() RunState
	Period() time.Duration
	BindComponent(c rtc.Component) error
	WaitComponentState(ctx context.Context, c rtc.Component, state rtc.LifeCycleState) error
	Owner() rtc.Component
	Participants() []rtc.Component
	SetProperty(key, value string)
	Properties() map[string]string
	Cycles() uint64
	Status() Status

	// Close stops the context if it is running and releases its goroutine.
	Close() error
}

var (
	_ ExecutionContext = (*Periodic)(nil)
	_ ExecutionContext = (*ExtTrig)(nil)
	_ rtc.Triggerable  = (*ExtTrig)(nil)
)
