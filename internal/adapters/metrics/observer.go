// Package metrics exports execution events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/rtc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer implements ports.Observer with Prometheus collectors.
type Observer struct {
	cycles         *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	overruns       *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	callbackErrors *prometheus.CounterVec
}

var _ ports.Observer = (*Observer)(nil)

// NewObserver registers the rtcd collectors with reg. A nil reg uses the
// default registerer.
func NewObserver(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Observer{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rtcd_cycles_total",
			Help: "Total number of completed execution context cycles",
		}, []string{"ec"}),
		cycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rtcd_cycle_duration_seconds",
			Help:    "Duration of one execution context cycle",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"ec"}),
		overruns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rtcd_cycle_overruns_total",
			Help: "Total number of cycles that took longer than the period",
		}, []string{"ec"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rtcd_participant_transitions_total",
			Help: "Total number of participant lifecycle transitions by target state",
		}, []string{"ec", "from", "to"}),
		callbackErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rtcd_callback_errors_total",
			Help: "Total number of failed component callbacks",
		}, []string{"ec", "component", "callback"}),
	}
}

// CycleCompleted records one cycle.
func (o *Observer) CycleCompleted(ec string, elapsed time.Duration, overrun bool) {
	o.cycles.WithLabelValues(ec).Inc()
	o.cycleDuration.WithLabelValues(ec).Observe(elapsed.Seconds())
	if overrun {
		o.overruns.WithLabelValues(ec).Inc()
	}
}

// StateChanged records a participant transition. Component names are not
// used as labels here to bound cardinality.
func (o *Observer) StateChanged(ec, _ string, from, to rtc.LifeCycleState) {
	o.transitions.WithLabelValues(ec, from.String(), to.String()).Inc()
}

// CallbackFailed records a failed component callback.
func (o *Observer) CallbackFailed(ec, component, callback string, _ error) {
	o.callbackErrors.WithLabelValues(ec, component, callback).Inc()
}
