package ec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/rtcd/internal/app"
	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/pkg/log"
	"github.com/bft-labs/rtcd/pkg/rtc"
)

// Status is a point-in-time snapshot of an execution context.
type Status = domain.ContextStatus

// statePollInterval is how often WaitComponentState re-checks the state.
const statePollInterval = time.Millisecond

// base holds what both disciplines share: the profile, the worker and the
// run state. The embedding discipline supplies start, stop and kind.
type base struct {
	name    string
	profile *app.Profile
	worker  *app.Worker
	life    *app.Lifecycle
	logger  log.Logger
	obs     Observer

	// runMu serializes Start, Stop and Close.
	runMu sync.Mutex

	// onListChanged is called after a successful add or remove.
	onListChanged func()
}

func (b *base) init(self rtc.ExecutionContextService, kind rtc.ExecutionKind, loggerName string, o options) error {
	b.name = o.name
	b.logger = log.Named(o.logger, loggerName)
	b.obs = o.observer
	b.profile = app.NewProfile(kind)
	b.worker = app.NewWorker(self, o.name, o.logger, o.observer)
	b.life = app.NewLifecycle(b.logger, o.handler)
	if o.rate != 0 {
		if err := b.profile.SetRate(o.rate); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the context name.
func (b *base) Name() string { return b.name }

// IsRunning reports whether the context is started.
func (b *base) IsRunning() bool {
	return b.life.State() == app.RunRunning
}

// RunState returns the detailed run state.
func (b *base) RunState() RunState {
	return b.life.State()
}

// Rate returns the rate in Hz, or 0 when unset.
func (b *base) Rate() float64 {
	return b.profile.Rate()
}

// Period returns the period derived from the rate, or 0 when unset.
func (b *base) Period() time.Duration {
	return b.profile.Period()
}

// SetRate sets the rate and notifies every participant. A participant
// failing the notification moves to ERROR; the rate change still applies.
// The new period takes effect for the next computed sleep.
func (b *base) SetRate(rate float64) error {
	if err := b.profile.SetRate(rate); err != nil {
		b.logger.Warn("rejected rate", log.Float64("rate", rate), log.Err(err))
		return err
	}
	b.logger.Info("rate changed",
		log.String("ec", b.name),
		log.Float64("rate", rate),
		log.Duration("period", b.profile.Period()),
	)
	if err := b.worker.RateChanged(); err != nil {
		b.logger.Warn("participant rejected rate change", log.Err(err))
	}
	return nil
}

// Kind returns the execution kind.
func (b *base) Kind() rtc.ExecutionKind {
	return b.profile.Kind()
}

// AddComponent adds c as a participant.
func (b *base) AddComponent(c rtc.Component) error {
	if _, err := b.worker.AddComponent(c); err != nil {
		b.logger.Warn("add component failed", log.String("component", rtc.NameOf(c)), log.Err(err))
		return err
	}
	_ = b.profile.AddParticipant(c)
	b.listChanged()
	return nil
}

// BindComponent makes c the owner of this context and adds it as a
// participant.
func (b *base) BindComponent(c rtc.Component) error {
	if _, err := b.worker.BindComponent(c); err != nil {
		b.logger.Warn("bind component failed", log.String("component", rtc.NameOf(c)), log.Err(err))
		return err
	}
	b.profile.SetOwner(c)
	_ = b.profile.AddParticipant(c)
	b.listChanged()
	return nil
}

// RemoveComponent removes c. The component is detached once the removal is
// applied after the cycle in progress.
func (b *base) RemoveComponent(c rtc.Component) error {
	if err := b.worker.RemoveComponent(c); err != nil {
		b.logger.Warn("remove component failed", log.String("component", rtc.NameOf(c)), log.Err(err))
		return err
	}
	_ = b.profile.RemoveParticipant(c)
	if owner := b.profile.Owner(); owner != nil && rtc.Equal(owner, c) {
		b.profile.SetOwner(nil)
	}
	b.listChanged()
	return nil
}

func (b *base) listChanged() {
	if b.onListChanged != nil {
		b.onListChanged()
	}
}

// ActivateComponent requests INACTIVE to ACTIVE for c.
func (b *base) ActivateComponent(c rtc.Component) error {
	return b.admin("activate", c, b.worker.ActivateComponent)
}

// DeactivateComponent requests ACTIVE to INACTIVE for c.
func (b *base) DeactivateComponent(c rtc.Component) error {
	return b.admin("deactivate", c, b.worker.DeactivateComponent)
}

// ResetComponent requests ERROR to INACTIVE for c.
func (b *base) ResetComponent(c rtc.Component) error {
	return b.admin("reset", c, b.worker.ResetComponent)
}

func (b *base) admin(op string, c rtc.Component, fn func(rtc.Component) error) error {
	if err := fn(c); err != nil {
		b.logger.Warn(op+" component failed",
			log.String("component", rtc.NameOf(c)),
			log.String("code", rtc.CodeOf(err).String()),
		)
		return err
	}
	return nil
}

// ComponentState returns the lifecycle state of c, or CREATED_STATE when c
// is not a participant.
func (b *base) ComponentState(c rtc.Component) rtc.LifeCycleState {
	return b.worker.ComponentState(c)
}

// WaitComponentState blocks until c reaches state or ctx ends.
func (b *base) WaitComponentState(ctx context.Context, c rtc.Component, state rtc.LifeCycleState) error {
	if b.worker.Find(c) == nil {
		return fmt.Errorf("wait for %s: not a participant: %w", rtc.NameOf(c), rtc.ErrBadParameter)
	}
	ticker := time.NewTicker(statePollInterval)
	defer ticker.Stop()
	for {
		if b.worker.ComponentState(c) == state {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Owner returns the owning component, or nil.
func (b *base) Owner() rtc.Component {
	return b.profile.Owner()
}

// Participants returns the participants in the order they were added.
func (b *base) Participants() []rtc.Component {
	return b.profile.Participants()
}

// SetProperty sets a free-form profile property.
func (b *base) SetProperty(key, value string) {
	b.profile.SetProperty(key, value)
}

// Properties returns a copy of the profile properties.
func (b *base) Properties() map[string]string {
	return b.profile.Properties()
}

// Cycles returns the number of completed cycles.
func (b *base) Cycles() uint64 {
	return b.worker.Cycles()
}

// Status returns a snapshot of the context.
func (b *base) Status() Status {
	st := Status{
		Name:         b.name,
		Kind:         b.Kind(),
		Rate:         b.Rate(),
		Running:      b.IsRunning(),
		Cycles:       b.worker.Cycles(),
		Participants: b.worker.ParticipantStatus(),
		UpdatedAt:    time.Now(),
	}
	if owner := b.profile.Owner(); owner != nil {
		st.Owner = rtc.NameOf(owner)
	}
	return st
}

// begin moves the run state to Starting and starts the worker.
func (b *base) begin() error {
	if err := b.life.TransitionTo(app.RunStarting, "start requested"); err != nil {
		return fmt.Errorf("start %s: %w: %w", b.name, err, rtc.ErrPreconditionNotMet)
	}
	if err := b.worker.Start(); err != nil {
		_ = b.life.TransitionTo(app.RunCrashed, err.Error())
		return err
	}
	return nil
}

// end stops the worker and moves the run state to Stopped.
func (b *base) end() error {
	err := b.worker.Stop()
	if tErr := b.life.TransitionTo(app.RunStopped, "stopped"); tErr != nil {
		b.logger.Error("run state", log.Err(tErr))
	}
	return err
}

// cycle runs one complete cycle and reports its timing.
func (b *base) cycle() time.Duration {
	start := time.Now()
	b.worker.InvokeWorker()
	elapsed := time.Since(start)

	period := b.profile.Period()
	overrun := !b.profile.NoWait() && elapsed > period
	b.obs.CycleCompleted(b.name, elapsed, overrun)
	if overrun {
		b.logger.Debug("cycle overrun",
			log.String("ec", b.name),
			log.Duration("elapsed", elapsed),
			log.Duration("period", period),
		)
	}
	return elapsed
}

// remaining returns how long to sleep after a cycle that took elapsed.
func (b *base) remaining(elapsed time.Duration) time.Duration {
	if b.profile.NoWait() {
		return 0
	}
	if d := b.profile.Period() - elapsed; d > 0 {
		return d
	}
	return 0
}
