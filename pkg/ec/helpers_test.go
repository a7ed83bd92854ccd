package ec

import (
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
	"go.uber.org/atomic"
)

// tracked counts its data-flow callbacks and fails on_execute on a chosen call.
type tracked struct {
	*rtc.Base

	executes    atomic.Int64
	updates     atomic.Int64
	rateChanges atomic.Int64
	failAt      atomic.Int64

	mu    sync.Mutex
	block chan struct{}
	enter chan struct{}
}

func newTracked(name string) *tracked {
	return &tracked{Base: rtc.NewBase(name)}
}

// blockNext makes the next on_execute signal entered and wait for release.
func (p *tracked) blockNext() (entered <-chan struct{}, release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.block = make(chan struct{})
	p.enter = make(chan struct{})
	block := p.block
	return p.enter, func() { close(block) }
}

func (p *tracked) OnExecute(rtc.ExecutionContextHandle) error {
	n := p.executes.Inc()

	p.mu.Lock()
	block, enter := p.block, p.enter
	p.block, p.enter = nil, nil
	p.mu.Unlock()
	if block != nil {
		close(enter)
		<-block
	}

	if n == p.failAt.Load() {
		return errors.New("execute failed")
	}
	return nil
}

func (p *tracked) OnStateUpdate(rtc.ExecutionContextHandle) error {
	p.updates.Inc()
	return nil
}

func (p *tracked) OnRateChanged(rtc.ExecutionContextHandle) error {
	p.rateChanges.Inc()
	return nil
}

// recordingHandler records run state changes.
type recordingHandler struct {
	mu     sync.Mutex
	states []RunState
}

func (h *recordingHandler) OnStateChange(_, current RunState, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, current)
}

func (h *recordingHandler) all() []RunState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]RunState(nil), h.states...)
}

// countingObserver counts cycles and transitions.
type countingObserver struct {
	cycles      atomic.Int64
	transitions atomic.Int64
	failures    atomic.Int64
}

func (o *countingObserver) CycleCompleted(string, time.Duration, bool) { o.cycles.Inc() }

func (o *countingObserver) StateChanged(string, string, rtc.LifeCycleState, rtc.LifeCycleState) {
	o.transitions.Inc()
}

func (o *countingObserver) CallbackFailed(string, string, string, error) { o.failures.Inc() }
