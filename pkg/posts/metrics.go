package posts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for a store.
// A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	broadcasts  prometheus.Counter
	deliveries  prometheus.Counter
	stale       prometheus.Counter
	subscribers prometheus.Gauge
	posts       prometheus.Gauge
}

// NewMetrics registers the store collectors with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Requests applied by the post store",
		}, []string{"kind"}),

		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "requests_dropped_total",
			Help:      "Requests discarded because the store or bridge was closed",
		}, []string{"kind"}),

		broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "broadcasts_total",
			Help:      "Snapshots published after applied requests",
		}),

		deliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "deliveries_total",
			Help:      "Snapshots handed to bridge callbacks",
		}),

		stale: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "stale_deliveries_total",
			Help:      "Deliveries skipped because the bridge was already closed",
		}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "subscribers",
			Help:      "Bridges currently registered with the store",
		}),

		posts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "posts",
			Help:      "Posts currently held by the store",
		}),
	}
}

func (m *Metrics) recordApplied(kind string, posts int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind).Inc()
	m.posts.Set(float64(posts))
}

func (m *Metrics) setPosts(n int) {
	if m == nil {
		return
	}
	m.posts.Set(float64(n))
}

func (m *Metrics) recordDropped(kind string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind).Inc()
}

func (m *Metrics) recordBroadcast(delivered, stale int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.deliveries.Add(float64(delivered))
	m.stale.Add(float64(stale))
}

func (m *Metrics) setSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
