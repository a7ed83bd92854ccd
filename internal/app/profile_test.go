package app

import (
	"math"
	"testing"
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_Rate(t *testing.T) {
	t.Parallel()

	p := NewProfile(rtc.Periodic)
	assert.Zero(t, p.Rate())
	assert.Zero(t, p.Period())
	assert.True(t, p.NoWait(), "unset rate runs back to back")

	require.NoError(t, p.SetRate(10))
	assert.Equal(t, 100*time.Millisecond, p.Period())
	assert.False(t, p.NoWait())

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, p.SetRate(bad), rtc.ErrBadParameter, "rate %v", bad)
	}
	assert.Equal(t, 10.0, p.Rate(), "rejected rates keep the previous rate")

	require.NoError(t, p.SetPeriod(20*time.Millisecond))
	assert.InDelta(t, 50.0, p.Rate(), 1e-9)
	assert.ErrorIs(t, p.SetPeriod(0), rtc.ErrBadParameter)

	require.NoError(t, p.SetRate(2e6))
	assert.True(t, p.NoWait())
}

func TestProfile_Participants(t *testing.T) {
	t.Parallel()

	p := NewProfile(rtc.EventDriven)
	a := newTestComp("a")
	b := newTestComp("b")

	require.NoError(t, p.AddParticipant(a))
	require.NoError(t, p.AddParticipant(b))
	assert.ErrorIs(t, p.AddParticipant(a), rtc.ErrBadParameter)
	assert.Equal(t, []rtc.Component{a, b}, p.Participants())

	require.NoError(t, p.RemoveParticipant(a))
	assert.ErrorIs(t, p.RemoveParticipant(a), rtc.ErrBadParameter)
	assert.Equal(t, []rtc.Component{b}, p.Participants())
}

func TestProfile_OwnerKindProperties(t *testing.T) {
	t.Parallel()

	p := NewProfile(rtc.Periodic)
	assert.Nil(t, p.Owner())
	owner := newTestComp("owner")
	p.SetOwner(owner)
	assert.Same(t, owner, p.Owner())

	p.SetKind(rtc.Other)
	assert.Equal(t, rtc.Other, p.Kind())

	p.SetProperty("sync_transition", "YES")
	v, ok := p.Property("sync_transition")
	assert.True(t, ok)
	assert.Equal(t, "YES", v)

	props := p.Properties()
	props["sync_transition"] = "NO"
	v, _ = p.Property("sync_transition")
	assert.Equal(t, "YES", v, "Properties returns a copy")
}
