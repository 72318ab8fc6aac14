package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics. Feature modules register
// their own metrics in their metrics packages.
type Metrics struct {
	EventsPublished *prometheus.CounterVec
	SweepDuration   prometheus.Histogram
}

// New creates and registers the process-level metrics.
func New() *Metrics {
	return &Metrics{
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pantheon_domain_events_published_total",
			Help: "Total domain events published on the in-process bus",
		}, []string{"kind"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pantheon_sweep_duration_seconds",
			Help:    "Duration of the periodic expiry sweep",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementEventPublished records one published domain event.
func (m *Metrics) IncrementEventPublished(kind string) {
	m.EventsPublished.WithLabelValues(kind).Inc()
}
