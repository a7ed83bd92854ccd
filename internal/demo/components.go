package demo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/rtc"
)

// ErrInjected is returned by a Faulty component on its failing executions.
var ErrInjected = errors.New("demo: injected failure")

// hooks implements the lifecycle callbacks the demo components have in
// common. Embedders override the ones they care about.
type hooks struct {
	*rtc.Base
	logger ports.Logger
}

func (h *hooks) OnStartup(rtc.ExecutionContextHandle) error  { return nil }
func (h *hooks) OnShutdown(rtc.ExecutionContextHandle) error { return nil }

func (h *hooks) OnActivated(id rtc.ExecutionContextHandle) error {
	h.logger.Info("activated", ports.Int("ec_id", int(id)))
	return nil
}

func (h *hooks) OnDeactivated(id rtc.ExecutionContextHandle) error {
	h.logger.Info("deactivated", ports.Int("ec_id", int(id)))
	return nil
}

func (h *hooks) OnAborting(id rtc.ExecutionContextHandle) error {
	h.logger.Warn("aborting", ports.Int("ec_id", int(id)))
	return nil
}

func (h *hooks) OnError(rtc.ExecutionContextHandle) error { return nil }

func (h *hooks) OnReset(id rtc.ExecutionContextHandle) error {
	h.logger.Info("reset", ports.Int("ec_id", int(id)))
	return nil
}

func (h *hooks) OnStateUpdate(rtc.ExecutionContextHandle) error { return nil }
func (h *hooks) OnRateChanged(rtc.ExecutionContextHandle) error { return nil }

// Counter counts its executions and logs progress every Every cycles.
type Counter struct {
	hooks
	every uint64
	count atomic.Uint64
}

func newCounter(name, arg string, logger ports.Logger) (rtc.Component, error) {
	every := uint64(0)
	if arg != "" {
		n, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse log interval: %w", err)
		}
		every = n
	}
	return NewCounter(name, every, logger), nil
}

// NewCounter returns a Counter that logs every n executions; zero
// disables progress logging.
func NewCounter(name string, n uint64, logger ports.Logger) *Counter {
	return &Counter{hooks: hooks{Base: rtc.NewBase(name), logger: ports.Named(logger, name)}, every: n}
}

// OnExecute increments the counter.
func (c *Counter) OnExecute(rtc.ExecutionContextHandle) error {
	n := c.count.Inc()
	if c.every > 0 && n%c.every == 0 {
		c.logger.Info("executed", ports.Uint64("count", n))
	}
	return nil
}

// Count returns the number of executions so far.
func (c *Counter) Count() uint64 {
	return c.count.Load()
}

// Sine samples a sine wave of a fixed frequency, timed from activation.
type Sine struct {
	hooks
	freq float64

	mu      sync.Mutex
	started time.Time
	value   float64
	samples uint64
	now     func() time.Time
}

func newSine(name, arg string, logger ports.Logger) (rtc.Component, error) {
	freq := 1.0
	if arg != "" {
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("parse frequency: %w", err)
		}
		if !(f > 0) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("frequency %v: %w", f, rtc.ErrBadParameter)
		}
		freq = f
	}
	return NewSine(name, freq, logger), nil
}

// NewSine returns a Sine of frequency freq Hz.
func NewSine(name string, freq float64, logger ports.Logger) *Sine {
	return &Sine{
		hooks: hooks{Base: rtc.NewBase(name), logger: ports.Named(logger, name)},
		freq:  freq,
		now:   time.Now,
	}
}

// OnActivated restarts the wave.
func (s *Sine) OnActivated(id rtc.ExecutionContextHandle) error {
	s.mu.Lock()
	s.started = s.now()
	s.value = 0
	s.mu.Unlock()
	return s.hooks.OnActivated(id)
}

// OnExecute takes one sample.
func (s *Sine) OnExecute(rtc.ExecutionContextHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().Sub(s.started).Seconds()
	s.value = math.Sin(2 * math.Pi * s.freq * t)
	s.samples++
	return nil
}

// Value returns the latest sample.
func (s *Sine) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Samples returns the number of samples taken.
func (s *Sine) Samples() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Faulty fails every n-th execution. A reset clears the failure so the
// component can be activated again.
type Faulty struct {
	hooks
	n        uint64
	execs    atomic.Uint64
	failures atomic.Uint64
	resets   atomic.Uint64
}

func newFaulty(name, arg string, logger ports.Logger) (rtc.Component, error) {
	n := uint64(5)
	if arg != "" {
		v, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse failure period: %w", err)
		}
		if v == 0 {
			return nil, fmt.Errorf("failure period must be positive: %w", rtc.ErrBadParameter)
		}
		n = v
	}
	return NewFaulty(name, n, logger), nil
}

// NewFaulty returns a Faulty component failing every n executions.
func NewFaulty(name string, n uint64, logger ports.Logger) *Faulty {
	return &Faulty{hooks: hooks{Base: rtc.NewBase(name), logger: ports.Named(logger, name)}, n: n}
}

// OnExecute fails on every n-th call.
func (f *Faulty) OnExecute(rtc.ExecutionContextHandle) error {
	if f.execs.Inc()%f.n == 0 {
		f.failures.Inc()
		return ErrInjected
	}
	return nil
}

// OnReset records the recovery.
func (f *Faulty) OnReset(id rtc.ExecutionContextHandle) error {
	f.resets.Inc()
	return f.hooks.OnReset(id)
}

// Failures returns how many executions failed.
func (f *Faulty) Failures() uint64 {
	return f.failures.Load()
}

// Resets returns how many times the component was reset.
func (f *Faulty) Resets() uint64 {
	return f.resets.Load()
}
