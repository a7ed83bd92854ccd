package ec

import (
	"fmt"
	"time"

	"github.com/bft-labs/rtcd/internal/app"
	"github.com/bft-labs/rtcd/pkg/log"
	"github.com/bft-labs/rtcd/pkg/rtc"
)

// Periodic is a self-clocked execution context. While running, a dedicated
// goroutine runs one cycle per period.
type Periodic struct {
	base

	stop chan struct{}
	done chan struct{}
}

// NewPeriodic creates a stopped periodic execution context.
func NewPeriodic(opts ...Option) (*Periodic, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &Periodic{}
	if err := p.init(p, rtc.Periodic, "periodic_ec", o); err != nil {
		return nil, err
	}
	return p, nil
}

// Start invokes on_startup on every participant and starts the cycle loop.
func (p *Periodic) Start() error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if err := p.begin(); err != nil {
		return err
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(p.stop, p.done)

	_ = p.life.TransitionTo(app.RunRunning, "cycle loop started")
	p.logger.Info("execution context started",
		log.String("ec", p.name),
		log.Float64("rate", p.Rate()),
		log.Bool("nowait", p.profile.NoWait()),
	)
	return nil
}

// Stop waits for the cycle in progress, joins the loop goroutine and then
// invokes on_shutdown on every participant.
func (p *Periodic) Stop() error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if err := p.life.TransitionTo(app.RunStopping, "stop requested"); err != nil {
		return fmt.Errorf("stop %s: %w: %w", p.name, err, rtc.ErrPreconditionNotMet)
	}
	close(p.stop)
	<-p.done

	err := p.end()
	p.logger.Info("execution context stopped",
		log.String("ec", p.name),
		log.Uint64("cycles", p.Cycles()),
	)
	return err
}

// Close stops the context if it is running.
func (p *Periodic) Close() error {
	if p.IsRunning() {
		return p.Stop()
	}
	return nil
}

func (p *Periodic) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		default:
		}

		elapsed := p.cycle()
		wait := p.remaining(elapsed)
		if wait == 0 {
			continue
		}

		timer.Reset(wait)
		select {
		case <-stop:
			return
		case <-timer.C:
		}
	}
}

var _ rtc.ExecutionContextService = (*Periodic)(nil)
