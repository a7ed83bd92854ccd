package fsm

import (
	"errors"
	"sync"
)

// States is the state triple of a machine.
// At rest Curr equals Next.
type States[S comparable] struct {
	Prev S
	Curr S
	Next S
}

// Action is a state action. The returned error is reported to the caller of
// the worker phase that ran it; the engine never inspects it.
type Action[S comparable] func(st States[S]) error

// Actions groups the five per-state slots.
type Actions[S comparable] struct {
	Entry  Action[S]
	PreDo  Action[S]
	Do     Action[S]
	PostDo Action[S]
	Exit   Action[S]
}

// TransitionRequest describes the transition the next step will perform.
type TransitionRequest[S comparable] struct {
	Target S
	Self   bool
}

// Machine is a generic finite state machine.
type Machine[S comparable] struct {
	mu         sync.Mutex
	states     States[S]
	self       bool
	entered    bool
	actions    map[S]Actions[S]
	transition Action[S]

	// step is owned by the goroutine running the worker phases.
	step step[S]
}

type step[S comparable] struct {
	started bool
	stable  bool
	states  States[S]
}

// New creates a machine resting in start. The Entry action of start runs on
// the first step.
func New[S comparable](start S) *Machine[S] {
	m := &Machine[S]{actions: make(map[S]Actions[S])}
	m.SetStartState(States[S]{Prev: start, Curr: start, Next: start})
	return m
}

// SetStartState resets the triple. Any pending request is discarded and the
// Entry action of st.Curr runs on the next step.
func (m *Machine[S]) SetStartState(st States[S]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = st
	m.self = false
	m.entered = false
}

// SetActions replaces every slot of state.
func (m *Machine[S]) SetActions(state S, a Actions[S]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[state] = a
}

func (m *Machine[S]) update(state S, fn func(a *Actions[S])) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.actions[state]
	fn(&a)
	m.actions[state] = a
}

// SetEntryAction registers the Entry action of state.
func (m *Machine[S]) SetEntryAction(state S, fn Action[S]) {
	m.update(state, func(a *Actions[S]) { a.Entry = fn })
}

// SetPreDoAction registers the PreDo action of state.
func (m *Machine[S]) SetPreDoAction(state S, fn Action[S]) {
	m.update(state, func(a *Actions[S]) { a.PreDo = fn })
}

// SetDoAction registers the Do action of state.
func (m *Machine[S]) SetDoAction(state S, fn Action[S]) {
	m.update(state, func(a *Actions[S]) { a.Do = fn })
}

// SetPostDoAction registers the PostDo action of state.
func (m *Machine[S]) SetPostDoAction(state S, fn Action[S]) {
	m.update(state, func(a *Actions[S]) { a.PostDo = fn })
}

// SetExitAction registers the Exit action of state.
func (m *Machine[S]) SetExitAction(state S, fn Action[S]) {
	m.update(state, func(a *Actions[S]) { a.Exit = fn })
}

// SetTransitionAction registers the hook run after Exit whenever the machine
// leaves a state, including self-transitions.
func (m *Machine[S]) SetTransitionAction(fn Action[S]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transition = fn
}

// GoTo requests a transition to state. It never runs an action.
//
// Requesting the current state marks a self-transition: the next step runs
// Exit and then Entry of that state. A later request for another state
// replaces it.
func (m *Machine[S]) GoTo(state S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goTo(state)
}

// GoToIf requests a transition to state when cond holds for the current
// triple. The check and the request are atomic with respect to other GoTo
// calls.
func (m *Machine[S]) GoToIf(state S, cond func(st States[S]) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !cond(m.states) {
		return false
	}
	m.goTo(state)
	return true
}

func (m *Machine[S]) goTo(state S) {
	m.self = state == m.states.Curr && m.entered
	m.states.Next = state
}

// State returns the current state.
func (m *Machine[S]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states.Curr
}

// States returns a copy of the state triple.
func (m *Machine[S]) States() States[S] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states
}

// IsIn reports whether state is the current state.
func (m *Machine[S]) IsIn(state S) bool {
	return m.State() == state
}

// Request returns the pending transition, if any.
func (m *Machine[S]) Request() (TransitionRequest[S], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req := TransitionRequest[S]{Target: m.states.Next, Self: m.self}
	return req, m.states.Next != m.states.Curr || m.self
}

// Worker advances the machine by one complete step.
func (m *Machine[S]) Worker() error {
	return errors.Join(m.WorkerPre(), m.WorkerDo(), m.WorkerPost())
}

// WorkerPre runs the first phase of a step: Entry (when due) and PreDo.
func (m *Machine[S]) WorkerPre() error {
	m.mu.Lock()
	st := m.states
	enter := st.Prev != st.Curr || !m.entered
	m.entered = true
	m.mu.Unlock()

	var errs []error
	if enter {
		errs = append(errs, m.run(m.lookup(st.Curr).Entry, st))
	}

	// Entry may have requested a transition.
	m.mu.Lock()
	st.Next = m.states.Next
	m.mu.Unlock()

	m.step = step[S]{started: true, stable: st.Curr == st.Next, states: st}
	if m.step.stable {
		errs = append(errs, m.run(m.lookup(st.Curr).PreDo, st))
	}
	return errors.Join(errs...)
}

// WorkerDo runs the Do phase of the step begun by WorkerPre.
func (m *Machine[S]) WorkerDo() error {
	if !m.step.started || !m.step.stable {
		return nil
	}
	return m.run(m.lookup(m.step.states.Curr).Do, m.step.states)
}

// WorkerPost runs PostDo, then Exit and Transition when a transition is
// pending, and finally moves next into current.
func (m *Machine[S]) WorkerPost() error {
	if !m.step.started {
		return nil
	}
	st := m.step.states
	m.step = step[S]{}

	var errs []error
	if st.Curr == st.Next {
		errs = append(errs, m.run(m.lookup(st.Curr).PostDo, st))
	}

	// The decision to leave is taken once, here. A request arriving after it
	// stays pending for the next step.
	m.mu.Lock()
	st.Next = m.states.Next
	leaving := st.Curr != st.Next || m.self
	m.self = false
	tr := m.transition
	m.mu.Unlock()

	if !leaving {
		m.mu.Lock()
		m.states.Prev = st.Curr
		m.mu.Unlock()
		return errors.Join(errs...)
	}

	errs = append(errs, m.run(m.lookup(st.Curr).Exit, st))
	errs = append(errs, m.run(tr, st))

	// Exit has run, so a redirect requested meanwhile is taken as the target.
	m.mu.Lock()
	m.states.Prev = st.Curr
	m.states.Curr = m.states.Next
	m.self = false
	now := m.states
	m.mu.Unlock()

	// Exit ran but the machine stayed where it was.
	if now.Curr == st.Curr {
		errs = append(errs, m.run(m.lookup(now.Curr).Entry, now))
	}
	return errors.Join(errs...)
}

func (m *Machine[S]) lookup(state S) Actions[S] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actions[state]
}

func (m *Machine[S]) run(fn Action[S], st States[S]) error {
	if fn == nil {
		return nil
	}
	return fn(st)
}
