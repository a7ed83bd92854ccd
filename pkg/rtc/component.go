package rtc

import (
	"reflect"
	"strings"
)

// Component is a handle to a component that can take part in execution
// contexts. The handle is shared read-only between contexts.
type Component interface {
	// AttachContext informs the component that ec will drive it and
	// returns the id under which the component knows that context.
	AttachContext(ec ExecutionContextService) (ExecutionContextHandle, error)

	// DetachContext informs the component that the context with the
	// given id no longer drives it.
	DetachContext(id ExecutionContextHandle) error
}

// Binder is implemented by components that can own an execution context.
type Binder interface {
	// BindContext makes ec the owned context of the component and returns
	// its id, which must be below ECOtherOffset.
	BindContext(ec ExecutionContextService) (ExecutionContextHandle, error)
}

// ComponentAction is the basic lifecycle capability.
type ComponentAction interface {
	OnStartup(id ExecutionContextHandle) error
	OnShutdown(id ExecutionContextHandle) error
	OnActivated(id ExecutionContextHandle) error
	OnDeactivated(id ExecutionContextHandle) error
	OnAborting(id ExecutionContextHandle) error
	OnError(id ExecutionContextHandle) error
	OnReset(id ExecutionContextHandle) error
}

// DataFlowComponentAction is the data-flow execution capability.
type DataFlowComponentAction interface {
	OnExecute(id ExecutionContextHandle) error
	OnStateUpdate(id ExecutionContextHandle) error
	OnRateChanged(id ExecutionContextHandle) error
}

// FsmParticipantAction is implemented by components that take part in an
// external state machine.
type FsmParticipantAction interface {
	OnAction(id ExecutionContextHandle) error
}

// MultiModeComponentAction is implemented by components with several
// operating modes.
type MultiModeComponentAction interface {
	OnModeChanged(id ExecutionContextHandle) error
}

// Equivalence lets a component decide which handles denote it. Handles of
// components that do not implement it are compared with ==.
type Equivalence interface {
	IsEquivalent(other Component) bool
}

// Named is implemented by components that expose an instance name.
type Named interface {
	InstanceName() string
}

// Capabilities is the set of optional capabilities of a component.
type Capabilities uint8

const (
	CapComponentAction Capabilities = 1 << iota
	CapDataFlow
	CapFsmParticipant
	CapMultiMode
)

// CapabilitiesOf detects the capabilities c implements.
func CapabilitiesOf(c Component) Capabilities {
	var caps Capabilities
	if _, ok := c.(ComponentAction); ok {
		caps |= CapComponentAction
	}
	if _, ok := c.(DataFlowComponentAction); ok {
		caps |= CapDataFlow
	}
	if _, ok := c.(FsmParticipantAction); ok {
		caps |= CapFsmParticipant
	}
	if _, ok := c.(MultiModeComponentAction); ok {
		caps |= CapMultiMode
	}
	return caps
}

// Has reports whether all capabilities in x are present.
func (c Capabilities) Has(x Capabilities) bool {
	return c&x == x
}

// String lists the capability names separated by "|".
func (c Capabilities) String() string {
	var parts []string
	for _, p := range []struct {
		cap  Capabilities
		name string
	}{
		{CapComponentAction, "action"},
		{CapDataFlow, "dataflow"},
		{CapFsmParticipant, "fsm"},
		{CapMultiMode, "multimode"},
	} {
		if c.Has(p.cap) {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Equal reports whether a and b denote the same component.
func Equal(a, b Component) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(Equivalence); ok {
		return e.IsEquivalent(b)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// IsNil reports whether c is nil or a typed nil pointer.
func IsNil(c Component) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// NameOf returns the instance name of c, or its type name.
func NameOf(c Component) string {
	if c == nil {
		return "<nil>"
	}
	if n, ok := c.(Named); ok {
		return n.InstanceName()
	}
	return reflect.TypeOf(c).String()
}
