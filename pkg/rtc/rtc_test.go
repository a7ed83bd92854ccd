package rtc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plain struct {
	*Base
}

type full struct {
	*Base
}

func (full) OnStartup(ExecutionContextHandle) error     { return nil }
func (full) OnShutdown(ExecutionContextHandle) error    { return nil }
func (full) OnActivated(ExecutionContextHandle) error   { return nil }
func (full) OnDeactivated(ExecutionContextHandle) error { return nil }
func (full) OnAborting(ExecutionContextHandle) error    { return nil }
func (full) OnError(ExecutionContextHandle) error       { return nil }
func (full) OnReset(ExecutionContextHandle) error       { return nil }
func (full) OnExecute(ExecutionContextHandle) error     { return nil }
func (full) OnStateUpdate(ExecutionContextHandle) error { return nil }
func (full) OnRateChanged(ExecutionContextHandle) error { return nil }
func (full) OnAction(ExecutionContextHandle) error      { return nil }
func (full) OnModeChanged(ExecutionContextHandle) error { return nil }

type alias struct {
	*Base
	target Component
}

func (a *alias) IsEquivalent(other Component) bool {
	return other == a.target || other == Component(a)
}

// nilService satisfies ExecutionContextService for bookkeeping tests.
type nilService struct{ ExecutionContextService }

func TestCodeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want ReturnCode
	}{
		{nil, CodeOK},
		{ErrBadParameter, CodeBadParameter},
		{fmt.Errorf("remove camera: %w", ErrBadParameter), CodeBadParameter},
		{fmt.Errorf("activate: %w", ErrPreconditionNotMet), CodePreconditionNotMet},
		{ErrUnsupported, CodeUnsupported},
		{ErrOutOfResources, CodeOutOfResources},
		{ErrError, CodeError},
		{errors.New("anything else"), CodeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeOf(tt.err), "%v", tt.err)
	}
}

func TestReturnCodeErrRoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range []ReturnCode{CodeOK, CodeError, CodeBadParameter, CodeUnsupported, CodeOutOfResources, CodePreconditionNotMet} {
		assert.Equal(t, c, CodeOf(c.Err()), c.String())
	}
	assert.Equal(t, "UNKNOWN", ReturnCode(42).String())
}

func TestLifeCycleStateText(t *testing.T) {
	t.Parallel()

	for _, s := range []LifeCycleState{CreatedState, InactiveState, ActiveState, ErrorState} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var got LifeCycleState
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, s, got)
	}
	var s LifeCycleState
	assert.Error(t, s.UnmarshalText([]byte("SLEEPING")))
}

func TestParseExecutionKind(t *testing.T) {
	t.Parallel()

	k, err := ParseExecutionKind(" event_driven ")
	require.NoError(t, err)
	assert.Equal(t, EventDriven, k)

	_, err = ParseExecutionKind("sporadic")
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestCapabilitiesOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Capabilities(0), CapabilitiesOf(&plain{Base: NewBase("p")}))
	assert.Equal(t, "none", CapabilitiesOf(&plain{Base: NewBase("p")}).String())

	caps := CapabilitiesOf(&full{Base: NewBase("f")})
	assert.True(t, caps.Has(CapComponentAction|CapDataFlow|CapFsmParticipant|CapMultiMode))
	assert.Equal(t, "action|dataflow|fsm|multimode", caps.String())
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := &plain{Base: NewBase("a")}
	b := &plain{Base: NewBase("b")}
	assert.True(t, Equal(a, a))
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, nil))
	assert.True(t, Equal(nil, nil))

	al := &alias{Base: NewBase("alias"), target: a}
	assert.True(t, Equal(al, a))
	assert.False(t, Equal(al, b))
}

func TestIsNil(t *testing.T) {
	t.Parallel()

	var p *plain
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(p))
	assert.False(t, IsNil(&plain{Base: NewBase("x")}))
}

func TestBaseAttachDetach(t *testing.T) {
	t.Parallel()

	b := NewBase("")
	assert.NotEmpty(t, b.InstanceName())
	assert.Equal(t, b.InstanceName(), b.InstanceName())

	ec := nilService{}
	owned, err := b.BindContext(ec)
	require.NoError(t, err)
	assert.Equal(t, ExecutionContextHandle(0), owned)

	id1, err := b.AttachContext(ec)
	require.NoError(t, err)
	id2, err := b.AttachContext(ec)
	require.NoError(t, err)
	assert.Equal(t, ECOtherOffset, id1)
	assert.Equal(t, ECOtherOffset+1, id2)
	assert.Equal(t, []ExecutionContextHandle{0, id1, id2}, b.Contexts())

	_, ok := b.Context(id2)
	assert.True(t, ok)

	require.NoError(t, b.DetachContext(id1))
	assert.ErrorIs(t, b.DetachContext(id1), ErrBadParameter)
	assert.Equal(t, []ExecutionContextHandle{0, id2}, b.Contexts())

	_, err = b.AttachContext(nil)
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestNameOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cam", NameOf(&plain{Base: NewBase("cam")}))
	assert.Equal(t, "<nil>", NameOf(nil))
}
