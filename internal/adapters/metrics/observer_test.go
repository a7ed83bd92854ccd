package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/rtcd/pkg/rtc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_Cycles(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	o := NewObserver(reg)

	o.CycleCompleted("main", 2*time.Millisecond, false)
	o.CycleCompleted("main", 20*time.Millisecond, true)
	o.CycleCompleted("aux", time.Millisecond, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.cycles.WithLabelValues("main")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.cycles.WithLabelValues("aux")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.overruns.WithLabelValues("main")))
	assert.Equal(t, 2, testutil.CollectAndCount(o.cycleDuration))
}

func TestObserver_TransitionsAndErrors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	o := NewObserver(reg)

	o.StateChanged("main", "cam", rtc.ActiveState, rtc.ErrorState)
	o.StateChanged("main", "lidar", rtc.ActiveState, rtc.ErrorState)
	o.CallbackFailed("main", "cam", "on_execute", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(o.transitions.WithLabelValues("main", "ACTIVE_STATE", "ERROR_STATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.callbackErrors.WithLabelValues("main", "cam", "on_execute")))

	n, err := testutil.GatherAndCount(reg, "rtcd_callback_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewObserver_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewObserver(reg)
	assert.Panics(t, func() { NewObserver(reg) })
}
