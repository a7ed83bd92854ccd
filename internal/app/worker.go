package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/rtc"
	"go.uber.org/atomic"
)

// pendingOp is a participant list change staged until the next safe point.
type pendingOp struct {
	add bool
	p   *Participant
}

// Worker owns the participants of one execution context and advances them
// once per cycle.
//
// The participant slice is copy-on-write: it is replaced, never mutated, so
// a cycle iterates the snapshot it took in InvokeWorkerPreDo. Additions and
// removals are queued and applied by UpdateComponentList, which runs after
// every cycle or immediately when the context is stopped. No lock is held
// while calling into a component.
type Worker struct {
	ec     rtc.ExecutionContextService
	name   string
	logger ports.Logger
	obs    ports.Observer

	// admin serializes Start and Stop.
	admin sync.Mutex

	mu      sync.RWMutex
	running bool
	comps   []*Participant

	pendMu  sync.Mutex
	pending []pendingOp

	// cycle is the snapshot of the cycle in progress; scheduling goroutine only.
	cycle []*Participant

	cycles atomic.Uint64
}

// NewWorker creates a worker for ec. The name identifies the context in
// logs and observer events.
func NewWorker(ec rtc.ExecutionContextService, name string, logger ports.Logger, obs ports.Observer) *Worker {
	if obs == nil {
		obs = ports.NoopObserver{}
	}
	return &Worker{
		ec:     ec,
		name:   name,
		logger: ports.Named(logger, "ec_worker"),
		obs:    obs,
	}
}

// IsRunning reports whether the worker is started.
func (w *Worker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Start invokes on_startup on every participant and marks the worker
// running.
func (w *Worker) Start() error {
	w.admin.Lock()
	defer w.admin.Unlock()

	if w.IsRunning() {
		return fmt.Errorf("start %s: %w", w.name, rtc.ErrPreconditionNotMet)
	}
	for _, p := range w.snapshot() {
		_ = p.OnStartup()
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	w.logger.Debug("worker started", ports.String("ec", w.name))
	return nil
}

// Stop marks the worker stopped, invokes on_shutdown on every participant
// and applies pending list changes.
func (w *Worker) Stop() error {
	w.admin.Lock()
	defer w.admin.Unlock()

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("stop %s: %w", w.name, rtc.ErrPreconditionNotMet)
	}
	w.running = false
	comps := w.comps
	w.mu.Unlock()

	for _, p := range comps {
		_ = p.OnShutdown()
	}
	w.UpdateComponentList()
	w.logger.Debug("worker stopped", ports.String("ec", w.name))
	return nil
}

// AddComponent attaches the context to c and stages a participant for it.
// The participant is visible to cycles from the next cycle on, or at once
// when the worker is stopped.
func (w *Worker) AddComponent(c rtc.Component) (*Participant, error) {
	if rtc.IsNil(c) {
		return nil, fmt.Errorf("add nil component: %w", rtc.ErrBadParameter)
	}
	if w.Find(c) != nil {
		return nil, fmt.Errorf("add %s: already a participant: %w", rtc.NameOf(c), rtc.ErrBadParameter)
	}

	id, err := c.AttachContext(w.ec)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %v: %w", rtc.NameOf(c), err, rtc.ErrError)
	}
	if id < 0 {
		_ = c.DetachContext(id)
		w.logger.Error("invalid context id from attach",
			ports.String("component", rtc.NameOf(c)),
			ports.Int64("id", int64(id)),
		)
		return nil, fmt.Errorf("attach %s: invalid context id %d: %w", rtc.NameOf(c), id, rtc.ErrError)
	}
	return w.stage(c, id)
}

// BindComponent stages the owner of the context. The id the component
// assigns must lie below rtc.ECOtherOffset.
func (w *Worker) BindComponent(c rtc.Component) (*Participant, error) {
	if rtc.IsNil(c) {
		return nil, fmt.Errorf("bind nil component: %w", rtc.ErrBadParameter)
	}
	b, ok := c.(rtc.Binder)
	if !ok {
		return nil, fmt.Errorf("bind %s: %w", rtc.NameOf(c), rtc.ErrUnsupported)
	}
	if w.Find(c) != nil {
		return nil, fmt.Errorf("bind %s: already a participant: %w", rtc.NameOf(c), rtc.ErrBadParameter)
	}

	id, err := b.BindContext(w.ec)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %v: %w", rtc.NameOf(c), err, rtc.ErrError)
	}
	if id < 0 || id >= rtc.ECOtherOffset {
		_ = c.DetachContext(id)
		w.logger.Error("invalid context id from bind",
			ports.String("component", rtc.NameOf(c)),
			ports.Int64("id", int64(id)),
		)
		return nil, fmt.Errorf("bind %s: invalid context id %d: %w", rtc.NameOf(c), id, rtc.ErrError)
	}
	return w.stage(c, id)
}

func (w *Worker) stage(c rtc.Component, id rtc.ExecutionContextHandle) (*Participant, error) {
	p := NewParticipant(c, id, w.name, w.logger, w.obs)

	w.pendMu.Lock()
	if w.findLocked(c) != nil {
		w.pendMu.Unlock()
		_ = c.DetachContext(id)
		return nil, fmt.Errorf("add %s: already a participant: %w", p.Name(), rtc.ErrBadParameter)
	}
	w.pending = append(w.pending, pendingOp{add: true, p: p})
	w.pendMu.Unlock()

	w.logger.Info("component added",
		ports.String("ec", w.name),
		ports.String("component", p.Name()),
		ports.Int64("id", int64(id)),
	)
	if !w.IsRunning() {
		w.UpdateComponentList()
	}
	return p, nil
}

// RemoveComponent stages the removal of c. The component is detached once
// the removal is applied.
func (w *Worker) RemoveComponent(c rtc.Component) error {
	if rtc.IsNil(c) {
		return fmt.Errorf("remove nil component: %w", rtc.ErrBadParameter)
	}

	w.pendMu.Lock()
	// Not merged yet: drop the staged add.
	for i, op := range w.pending {
		if op.add && rtc.Equal(op.p.comp, c) {
			w.pending = append(w.pending[:i:i], w.pending[i+1:]...)
			w.pendMu.Unlock()
			w.detach(op.p)
			return nil
		}
	}
	var p *Participant
	for _, cand := range w.snapshot() {
		if rtc.Equal(cand.comp, c) && !cand.removing.Load() {
			p = cand
			break
		}
	}
	if p == nil || !p.removing.CompareAndSwap(false, true) {
		w.pendMu.Unlock()
		return fmt.Errorf("remove %s: not a participant: %w", rtc.NameOf(c), rtc.ErrBadParameter)
	}
	w.pending = append(w.pending, pendingOp{p: p})
	w.pendMu.Unlock()

	if !w.IsRunning() {
		w.UpdateComponentList()
	}
	return nil
}

// UpdateComponentList applies staged additions and removals. It must not be
// called from inside a cycle.
func (w *Worker) UpdateComponentList() {
	w.pendMu.Lock()
	ops := w.pending
	w.pending = nil
	w.pendMu.Unlock()
	if len(ops) == 0 {
		return
	}

	var removed []*Participant
	w.mu.Lock()
	comps := make([]*Participant, len(w.comps), len(w.comps)+len(ops))
	copy(comps, w.comps)
	for _, op := range ops {
		if op.add {
			comps = append(comps, op.p)
			continue
		}
		for i, p := range comps {
			if p == op.p {
				comps = append(comps[:i], comps[i+1:]...)
				removed = append(removed, p)
				break
			}
		}
	}
	w.comps = comps
	w.mu.Unlock()

	for _, p := range removed {
		w.detach(p)
	}
}

func (w *Worker) detach(p *Participant) {
	if err := p.detach(); err != nil {
		w.logger.Warn("detach failed",
			ports.String("component", p.Name()),
			ports.Err(err),
		)
	}
	w.logger.Info("component removed",
		ports.String("ec", w.name),
		ports.String("component", p.Name()),
	)
}

// Find returns the participant for c, including staged additions, or nil.
func (w *Worker) Find(c rtc.Component) *Participant {
	w.pendMu.Lock()
	defer w.pendMu.Unlock()
	return w.findLocked(c)
}

func (w *Worker) findLocked(c rtc.Component) *Participant {
	for _, p := range w.snapshot() {
		if rtc.Equal(p.comp, c) {
			return p
		}
	}
	for _, op := range w.pending {
		if op.add && rtc.Equal(op.p.comp, c) {
			return op.p
		}
	}
	return nil
}

// ActivateComponent requests activation of c.
func (w *Worker) ActivateComponent(c rtc.Component) error {
	p, err := w.lookup("activate", c)
	if err != nil {
		return err
	}
	return p.Activate()
}

// DeactivateComponent requests deactivation of c.
func (w *Worker) DeactivateComponent(c rtc.Component) error {
	p, err := w.lookup("deactivate", c)
	if err != nil {
		return err
	}
	return p.Deactivate()
}

// ResetComponent requests recovery of c from ERROR.
func (w *Worker) ResetComponent(c rtc.Component) error {
	p, err := w.lookup("reset", c)
	if err != nil {
		return err
	}
	return p.Reset()
}

func (w *Worker) lookup(op string, c rtc.Component) (*Participant, error) {
	if rtc.IsNil(c) {
		return nil, fmt.Errorf("%s nil component: %w", op, rtc.ErrBadParameter)
	}
	p := w.Find(c)
	if p == nil {
		return nil, fmt.Errorf("%s %s: not a participant: %w", op, rtc.NameOf(c), rtc.ErrBadParameter)
	}
	return p, nil
}

// ComponentState returns the lifecycle state of c, or CreatedState when c
// is not a participant.
func (w *Worker) ComponentState(c rtc.Component) rtc.LifeCycleState {
	if rtc.IsNil(c) {
		return rtc.CreatedState
	}
	if p := w.Find(c); p != nil {
		return p.State()
	}
	return rtc.CreatedState
}

// Participants returns the merged participants in insertion order.
func (w *Worker) Participants() []*Participant {
	return append([]*Participant(nil), w.snapshot()...)
}

// ParticipantStatus returns the status of every merged participant.
func (w *Worker) ParticipantStatus() []domain.ParticipantStatus {
	comps := w.snapshot()
	out := make([]domain.ParticipantStatus, 0, len(comps))
	for _, p := range comps {
		out = append(out, domain.ParticipantStatus{
			Name:         p.Name(),
			ContextID:    p.ID(),
			State:        p.State(),
			Capabilities: p.Capabilities().String(),
		})
	}
	return out
}

// Cycles returns the number of completed cycles.
func (w *Worker) Cycles() uint64 {
	return w.cycles.Load()
}

// InvokeWorker runs one complete cycle.
func (w *Worker) InvokeWorker() {
	w.InvokeWorkerPreDo()
	w.InvokeWorkerDo()
	w.InvokeWorkerPostDo()
}

// InvokeWorkerPreDo snapshots the participants and runs the pre-do phase
// for all of them.
func (w *Worker) InvokeWorkerPreDo() {
	w.cycle = w.snapshot()
	for _, p := range w.cycle {
		p.WorkerPreDo()
	}
}

// InvokeWorkerDo runs the do phase for the participants of this cycle.
func (w *Worker) InvokeWorkerDo() {
	for _, p := range w.cycle {
		p.WorkerDo()
	}
}

// InvokeWorkerPostDo runs the post-do phase for the participants of this
// cycle and applies staged list changes.
func (w *Worker) InvokeWorkerPostDo() {
	for _, p := range w.cycle {
		p.WorkerPostDo()
	}
	w.cycle = nil
	w.UpdateComponentList()
	w.cycles.Inc()
}

// RateChanged notifies every participant of a rate change and returns the
// first failure.
func (w *Worker) RateChanged() error {
	var first error
	for _, p := range w.snapshot() {
		if err := p.OnRateChanged(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// IsAllCurrentState reports whether every participant is in s.
func (w *Worker) IsAllCurrentState(s rtc.LifeCycleState) bool {
	return w.all(func(p *Participant) bool { return p.IsCurrentState(s) })
}

// IsAllNextState reports whether every participant heads to s.
func (w *Worker) IsAllNextState(s rtc.LifeCycleState) bool {
	return w.all(func(p *Participant) bool { return p.IsNextState(s) })
}

// IsOneOfCurrentState reports whether any participant is in s.
func (w *Worker) IsOneOfCurrentState(s rtc.LifeCycleState) bool {
	return !w.all(func(p *Participant) bool { return !p.IsCurrentState(s) })
}

// IsOneOfNextState reports whether any participant heads to s.
func (w *Worker) IsOneOfNextState(s rtc.LifeCycleState) bool {
	return !w.all(func(p *Participant) bool { return !p.IsNextState(s) })
}

func (w *Worker) all(pred func(*Participant) bool) bool {
	for _, p := range w.snapshot() {
		if !pred(p) {
			return false
		}
	}
	return true
}

func (w *Worker) snapshot() []*Participant {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.comps
}
