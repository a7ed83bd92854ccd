package rtc

import (
	"fmt"
	"strings"
)

// LifeCycleState is the lifecycle state of a component within one
// execution context.
type LifeCycleState int32

const (
	// CreatedState is reported for components that are not participants.
	CreatedState LifeCycleState = iota
	InactiveState
	ActiveState
	ErrorState
)

// String returns the conventional state name.
func (s LifeCycleState) String() string {
	switch s {
	case CreatedState:
		return "CREATED_STATE"
	case InactiveState:
		return "INACTIVE_STATE"
	case ActiveState:
		return "ACTIVE_STATE"
	case ErrorState:
		return "ERROR_STATE"
	default:
		return fmt.Sprintf("LifeCycleState(%d)", int32(s))
	}
}

// MarshalText encodes the state by name.
func (s LifeCycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name as produced by MarshalText.
func (s *LifeCycleState) UnmarshalText(b []byte) error {
	for _, st := range []LifeCycleState{CreatedState, InactiveState, ActiveState, ErrorState} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown lifecycle state %q", b)
}

// ExecutionKind describes what releases the cycles of an execution context.
type ExecutionKind int

const (
	Periodic ExecutionKind = iota
	EventDriven
	Other
)

// String returns the conventional kind name.
func (k ExecutionKind) String() string {
	switch k {
	case Periodic:
		return "PERIODIC"
	case EventDriven:
		return "EVENT_DRIVEN"
	case Other:
		return "OTHER"
	default:
		return fmt.Sprintf("ExecutionKind(%d)", int(k))
	}
}

// ParseExecutionKind parses a kind name case-insensitively.
func ParseExecutionKind(s string) (ExecutionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PERIODIC":
		return Periodic, nil
	case "EVENT_DRIVEN":
		return EventDriven, nil
	case "OTHER":
		return Other, nil
	}
	return Other, fmt.Errorf("%w: unknown execution kind %q", ErrBadParameter, s)
}

// MarshalText encodes the kind by name.
func (k ExecutionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ExecutionKind) UnmarshalText(b []byte) error {
	v, err := ParseExecutionKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ExecutionContextHandle identifies one attachment of a component to an
// execution context. Ids below ECOtherOffset denote the owning context,
// ids from ECOtherOffset on denote contexts the component participates in.
type ExecutionContextHandle int32

// ECOtherOffset is the first id handed out for participating contexts.
const ECOtherOffset ExecutionContextHandle = 1000
