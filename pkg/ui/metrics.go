package ui

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for a runtime.
// A nil *Metrics records nothing.
type Metrics struct {
	renders prometheus.Counter
	skipped prometheus.Counter
	panics  prometheus.Counter
	mounted prometheus.Gauge
}

// NewMetrics registers the runtime collectors with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		renders: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ui",
			Name:      "renders_total",
			Help:      "Component View invocations",
		}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ui",
			Name:      "renders_skipped_total",
			Help:      "Messages that left component state unchanged",
		}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ui",
			Name:      "handler_panics_total",
			Help:      "Panics recovered in component handlers",
		}),
		mounted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ui",
			Name:      "mounted_components",
			Help:      "Components currently mounted",
		}),
	}
}

func (m *Metrics) recordRender() {
	if m == nil {
		return
	}
	m.renders.Inc()
}

func (m *Metrics) recordSkip() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}

func (m *Metrics) recordPanic() {
	if m == nil {
		return
	}
	m.panics.Inc()
}

func (m *Metrics) setMounted(n int) {
	if m == nil {
		return
	}
	m.mounted.Set(float64(n))
}
