// FILE: scray/properties/metrics.go
package properties

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of a registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Resolutions *prometheus.CounterVec
	Assignments *prometheus.CounterVec
	Phase       prometheus.Gauge
	Stores      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "properties",
			Name:      "resolutions_total",
			Help:      "Property resolutions by property and source (store name, default, or error kind).",
		}, []string{"property", "source"}),
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "properties",
			Name:      "assignments_total",
			Help:      "Property assignments by property and outcome.",
		}, []string{"property", "outcome"}),
		Phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "properties",
			Name:      "phase",
			Help:      "Current registry phase (0=register, 1=config, 2=use).",
		}),
		Stores: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "properties",
			Name:      "stores",
			Help:      "Number of stores on the stack.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Resolutions, m.Assignments, m.Phase, m.Stores} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) setPhase(p Phase) {
	if m == nil {
		return
	}
	m.Phase.Set(float64(p))
}

func (m *Metrics) setStores(n int) {
	if m == nil {
		return
	}
	m.Stores.Set(float64(n))
}

func (m *Metrics) observeResolution(name, source string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		source = errorOutcome(err)
	}
	m.Resolutions.WithLabelValues(name, source).Inc()
}

func (m *Metrics) observeAssignment(name string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = errorOutcome(err)
	}
	m.Assignments.WithLabelValues(name, outcome).Inc()
}

// errorOutcome maps an error to a bounded label value.
func errorOutcome(err error) string {
	switch {
	case errors.Is(err, ErrPropertyEmpty):
		return "empty"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint"
	case errors.Is(err, ErrValueExists):
		return "exists"
	case errors.Is(err, ErrUnsupportedWrite):
		return "unsupported"
	case errors.Is(err, ErrStorageFormat), errors.Is(err, ErrTransform), errors.Is(err, ErrTypeMismatch):
		return "format"
	case errors.Is(err, ErrStoreWrite):
		return "store_error"
	default:
		return "error"
	}
}
