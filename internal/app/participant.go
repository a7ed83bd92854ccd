package app

import (
	"fmt"

	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/fsm"
	"github.com/bft-labs/rtcd/pkg/rtc"
	"go.uber.org/atomic"
)

type lifecycleStates = fsm.States[rtc.LifeCycleState]

// Participant binds one component to the lifecycle state machine of one
// execution context.
type Participant struct {
	comp rtc.Component
	id   rtc.ExecutionContextHandle
	caps rtc.Capabilities
	name string
	ec   string

	sm       *fsm.Machine[rtc.LifeCycleState]
	removing atomic.Bool

	logger   ports.Logger
	observer ports.Observer
}

// NewParticipant creates the state machine for comp attached under id.
// The participant starts in InactiveState.
func NewParticipant(comp rtc.Component, id rtc.ExecutionContextHandle, ec string, logger ports.Logger, observer ports.Observer) *Participant {
	if observer == nil {
		observer = ports.NoopObserver{}
	}
	p := &Participant{
		comp:     comp,
		id:       id,
		caps:     rtc.CapabilitiesOf(comp),
		name:     rtc.NameOf(comp),
		ec:       ec,
		sm:       fsm.New(rtc.InactiveState),
		logger:   ports.Named(logger, "psm"),
		observer: observer,
	}

	if p.caps.Has(rtc.CapComponentAction) {
		a := comp.(rtc.ComponentAction)
		p.sm.SetEntryAction(rtc.ActiveState, p.action("on_activated", a.OnActivated))
		p.sm.SetExitAction(rtc.ActiveState, p.action("on_deactivated", a.OnDeactivated))
		p.sm.SetEntryAction(rtc.ErrorState, p.action("on_aborting", a.OnAborting))
		p.sm.SetDoAction(rtc.ErrorState, p.action("on_error", a.OnError))
		p.sm.SetExitAction(rtc.ErrorState, p.action("on_reset", a.OnReset))
	}
	if p.caps.Has(rtc.CapDataFlow) {
		d := comp.(rtc.DataFlowComponentAction)
		p.sm.SetDoAction(rtc.ActiveState, p.unlessFailing(p.action("on_execute", d.OnExecute)))
		p.sm.SetPostDoAction(rtc.ActiveState, p.unlessFailing(p.action("on_state_update", d.OnStateUpdate)))
	}
	p.sm.SetTransitionAction(func(st lifecycleStates) error {
		p.logger.Debug("transition",
			ports.String("component", p.name),
			ports.String("from", st.Curr.String()),
			ports.String("to", st.Next.String()),
		)
		return nil
	})

	p.sm.SetStartState(lifecycleStates{Prev: rtc.InactiveState, Curr: rtc.InactiveState, Next: rtc.InactiveState})
	p.sm.GoTo(rtc.InactiveState)
	return p
}

// Component returns the bound component handle.
func (p *Participant) Component() rtc.Component { return p.comp }

// ID returns the context id the component assigned to this attachment.
func (p *Participant) ID() rtc.ExecutionContextHandle { return p.id }

// Name returns the component's instance name.
func (p *Participant) Name() string { return p.name }

// Capabilities returns the optional capabilities the component implements.
func (p *Participant) Capabilities() rtc.Capabilities { return p.caps }

// State returns the current lifecycle state.
func (p *Participant) State() rtc.LifeCycleState { return p.sm.State() }

// IsCurrentState reports whether the participant is in s.
func (p *Participant) IsCurrentState(s rtc.LifeCycleState) bool { return p.sm.IsIn(s) }

// IsNextState reports whether s is the requested next state.
func (p *Participant) IsNextState(s rtc.LifeCycleState) bool { return p.sm.States().Next == s }

// Activate requests the INACTIVE to ACTIVE transition.
func (p *Participant) Activate() error {
	return p.request("activate", rtc.InactiveState, rtc.ActiveState)
}

// Deactivate requests the ACTIVE to INACTIVE transition.
func (p *Participant) Deactivate() error {
	return p.request("deactivate", rtc.ActiveState, rtc.InactiveState)
}

// Reset requests the ERROR to INACTIVE transition.
func (p *Participant) Reset() error {
	return p.request("reset", rtc.ErrorState, rtc.InactiveState)
}

// request moves from src to dst on the next step. Requests are refused when
// the participant is not resting in src, which covers a transition already
// requested and the participant heading to ERROR.
func (p *Participant) request(op string, src, dst rtc.LifeCycleState) error {
	ok := p.sm.GoToIf(dst, func(st lifecycleStates) bool {
		return st.Curr == src && st.Next == src
	})
	if !ok {
		st := p.sm.States()
		return fmt.Errorf("%s %s in %s (next %s): %w", op, p.name, st.Curr, st.Next, rtc.ErrPreconditionNotMet)
	}
	return nil
}

// OnStartup forwards the context start to the component.
func (p *Participant) OnStartup() error {
	if a, ok := p.comp.(rtc.ComponentAction); ok {
		return p.report("on_startup", p.call("on_startup", a.OnStartup))
	}
	return nil
}

// OnShutdown forwards the context stop to the component.
func (p *Participant) OnShutdown() error {
	if a, ok := p.comp.(rtc.ComponentAction); ok {
		return p.report("on_shutdown", p.call("on_shutdown", a.OnShutdown))
	}
	return nil
}

// OnRateChanged forwards a rate change. A failure forces ERROR.
func (p *Participant) OnRateChanged() error {
	if d, ok := p.comp.(rtc.DataFlowComponentAction); ok {
		return p.fail("on_rate_changed", p.call("on_rate_changed", d.OnRateChanged))
	}
	return nil
}

// OnAction forwards an external state machine action. A failure forces ERROR.
func (p *Participant) OnAction() error {
	if f, ok := p.comp.(rtc.FsmParticipantAction); ok {
		return p.fail("on_action", p.call("on_action", f.OnAction))
	}
	return nil
}

// OnModeChanged forwards a mode change. A failure forces ERROR.
func (p *Participant) OnModeChanged() error {
	if m, ok := p.comp.(rtc.MultiModeComponentAction); ok {
		return p.fail("on_mode_changed", p.call("on_mode_changed", m.OnModeChanged))
	}
	return nil
}

// WorkerPreDo runs the first phase of one step.
func (p *Participant) WorkerPreDo() {
	_ = p.sm.WorkerPre()
}

// WorkerDo runs the Do phase of the current step.
func (p *Participant) WorkerDo() {
	_ = p.sm.WorkerDo()
}

// WorkerPostDo completes the current step.
func (p *Participant) WorkerPostDo() {
	before := p.sm.State()
	_ = p.sm.WorkerPost()
	if after := p.sm.State(); after != before {
		p.observer.StateChanged(p.ec, p.name, before, after)
	}
}

func (p *Participant) detach() error {
	return p.comp.DetachContext(p.id)
}

// action adapts a component callback to a state machine action. Failures
// force ERROR.
func (p *Participant) action(name string, fn func(rtc.ExecutionContextHandle) error) fsm.Action[rtc.LifeCycleState] {
	return func(lifecycleStates) error {
		return p.fail(name, p.call(name, fn))
	}
}

// unlessFailing skips fn once the participant is heading to ERROR.
func (p *Participant) unlessFailing(fn fsm.Action[rtc.LifeCycleState]) fsm.Action[rtc.LifeCycleState] {
	return func(st lifecycleStates) error {
		if p.IsNextState(rtc.ErrorState) {
			return nil
		}
		return fn(st)
	}
}

func (p *Participant) call(name string, fn func(rtc.ExecutionContextHandle) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn(p.id)
}

func (p *Participant) report(name string, err error) error {
	if err == nil {
		return nil
	}
	p.logger.Warn("callback failed",
		ports.String("component", p.name),
		ports.String("callback", name),
		ports.Err(err),
	)
	p.observer.CallbackFailed(p.ec, p.name, name, err)
	return err
}

// fail reports err and requests ERROR unless ERROR is already requested.
func (p *Participant) fail(name string, err error) error {
	if p.report(name, err) == nil {
		return nil
	}
	p.sm.GoToIf(rtc.ErrorState, func(st lifecycleStates) bool {
		return st.Next != rtc.ErrorState
	})
	return err
}
