package ec

import (
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/rtcd/internal/app"
	"github.com/bft-labs/rtcd/pkg/log"
	"github.com/bft-labs/rtcd/pkg/rtc"
	"go.uber.org/atomic"
)

// ExtTrig is an externally triggered execution context: each Tick releases
// one cycle. The cycle goroutine is created on the first Start and reused
// across later stop/start cycles until Close.
type ExtTrig struct {
	base

	mu      sync.Mutex
	cond    *sync.Cond
	active  bool // cycles may run
	pending int  // ticks not yet consumed
	inCycle bool
	merging bool
	started bool
	closed  bool
	wake    chan struct{}
	done    chan struct{}

	ticks   atomic.Uint64
	dropped atomic.Uint64
}

// NewExtTrig creates a stopped triggered execution context.
func NewExtTrig(opts ...Option) (*ExtTrig, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	e := &ExtTrig{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	if err := e.init(e, rtc.EventDriven, "exttrig_async_ec", o); err != nil {
		return nil, err
	}
	e.onListChanged = e.mergeIfIdle
	return e, nil
}

// Tick releases one cycle. It is a no-op while the context is stopped.
func (e *ExtTrig) Tick() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		e.logger.Debug("tick ignored, context stopped", log.String("ec", e.name))
		return
	}
	e.pending++
	e.cond.Broadcast()
	e.mu.Unlock()
	e.ticks.Inc()
}

// Ticks returns the number of accepted ticks.
func (e *ExtTrig) Ticks() uint64 {
	return e.ticks.Load()
}

// Dropped returns the number of ticks discarded by Stop before they ran.
func (e *ExtTrig) Dropped() uint64 {
	return e.dropped.Load()
}

// Start invokes on_startup on every participant and accepts ticks.
func (e *ExtTrig) Start() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return fmt.Errorf("start %s: closed: %w", e.name, rtc.ErrPreconditionNotMet)
	}

	if err := e.begin(); err != nil {
		return err
	}

	e.mu.Lock()
	e.active = true
	e.pending = 0
	if !e.started {
		e.started = true
		go e.loop()
	}
	e.mu.Unlock()

	_ = e.life.TransitionTo(app.RunRunning, "accepting ticks")
	e.logger.Info("execution context started",
		log.String("ec", e.name),
		log.Float64("rate", e.Rate()),
	)
	return nil
}

// Stop discards pending ticks, waits for the cycle in progress and invokes
// on_shutdown on every participant. The cycle goroutine is kept for reuse.
func (e *ExtTrig) Stop() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if err := e.life.TransitionTo(app.RunStopping, "stop requested"); err != nil {
		return fmt.Errorf("stop %s: %w: %w", e.name, err, rtc.ErrPreconditionNotMet)
	}

	e.mu.Lock()
	e.active = false
	if e.pending > 0 {
		e.dropped.Add(uint64(e.pending))
		e.pending = 0
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
	for e.inCycle {
		e.cond.Wait()
	}
	// Drain a wake-up nobody consumed so the next rate-limited sleep is not
	// cut short.
	select {
	case <-e.wake:
	default:
	}
	e.mu.Unlock()

	err := e.end()
	e.logger.Info("execution context stopped",
		log.String("ec", e.name),
		log.Uint64("cycles", e.Cycles()),
	)
	return err
}

// Close stops the context if it is running and terminates the cycle
// goroutine.
func (e *ExtTrig) Close() error {
	var err error
	if e.IsRunning() {
		err = e.Stop()
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return err
	}
	e.closed = true
	started := e.started
	e.cond.Broadcast()
	e.mu.Unlock()

	if started {
		<-e.done
	}
	return err
}

func (e *ExtTrig) loop() {
	defer close(e.done)

	e.mu.Lock()
	for {
		for !e.closed && (!e.active || e.pending == 0 || e.merging) {
			e.cond.Wait()
		}
		if e.closed {
			e.mu.Unlock()
			return
		}
		e.pending--
		e.inCycle = true
		e.mu.Unlock()

		elapsed := e.cycle()
		if wait := e.remaining(elapsed); wait > 0 {
			e.sleep(wait)
		}

		e.mu.Lock()
		e.inCycle = false
		e.cond.Broadcast()
	}
}

// sleep pads a cycle to the configured period. Stop cuts it short.
func (e *ExtTrig) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-e.wake:
	}
}

// mergeIfIdle applies participant list changes at once when no cycle is
// running or pending, so that an idle context reflects them immediately.
func (e *ExtTrig) mergeIfIdle() {
	e.mu.Lock()
	if !e.active || e.pending > 0 || e.inCycle || e.merging {
		e.mu.Unlock()
		return
	}
	e.merging = true
	e.mu.Unlock()

	e.worker.UpdateComponentList()

	e.mu.Lock()
	e.merging = false
	e.cond.Broadcast()
	e.mu.Unlock()
}

var _ rtc.Triggerable = (*ExtTrig)(nil)
