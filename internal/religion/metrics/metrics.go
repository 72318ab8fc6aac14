package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the religion module.
type Metrics struct {
	ReligionsCreated prometheus.Counter
	ReligionsDeleted prometheus.Counter
	PrestigeAwarded  prometheus.Counter
}

// New creates a new Metrics instance with all religion module metrics
// registered.
func New() *Metrics {
	return &Metrics{
		ReligionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_religions_created_total",
			Help: "Total number of religions founded",
		}),
		ReligionsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_religions_deleted_total",
			Help: "Total number of religions deleted",
		}),
		PrestigeAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_prestige_awarded_total",
			Help: "Total integer prestige credited across all religions",
		}),
	}
}

// IncrementReligionsCreated records a successful founding.
func (m *Metrics) IncrementReligionsCreated() { m.ReligionsCreated.Inc() }

// IncrementReligionsDeleted records a deletion.
func (m *Metrics) IncrementReligionsDeleted() { m.ReligionsDeleted.Inc() }

// ObservePrestigeAwarded records credited prestige.
func (m *Metrics) ObservePrestigeAwarded(amount int64) {
	m.PrestigeAwarded.Add(float64(amount))
}
