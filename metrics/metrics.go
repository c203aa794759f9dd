// Package metrics records per-invocation run metrics on a registry owned by
// the run and exports them as a Prometheus textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lattice-substrate/jid-conformance/harness"
	"github.com/lattice-substrate/jid-conformance/jiderr"
)

// Metrics implements harness.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	// Outcomes by prepper and kind (rejected, accepted, defect).
	Outcomes *prometheus.CounterVec

	// Wall time of a single Prepare call, including abandoned ones.
	InvocationLatency *prometheus.HistogramVec
}

// New creates Metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jidprep_outcomes_total",
			Help: "Evaluated (prepper, vector) pairs by prepper and outcome kind",
		}, []string{"prepper", "kind"}),
		InvocationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jidprep_invocation_seconds",
			Help:    "Duration of a single prepper invocation",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 5},
		}, []string{"prepper"}),
	}
}

var _ harness.Observer = (*Metrics)(nil)

// ObserveInvocation records one invocation.
func (m *Metrics) ObserveInvocation(prepper string, kind harness.Kind, elapsed time.Duration) {
	if m != nil {
		m.Outcomes.WithLabelValues(prepper, kind.String()).Inc()
		m.InvocationLatency.WithLabelValues(prepper).Observe(elapsed.Seconds())
	}
}

// WriteTextfile writes the registry in the text exposition format, atomically
// replacing path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return jiderr.Wrap(jiderr.InternalIO, "write metrics textfile", err)
	}
	return nil
}
