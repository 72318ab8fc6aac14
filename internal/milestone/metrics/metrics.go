// Package metrics exposes prometheus counters for milestone activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the milestone counters.
type Metrics struct {
	unlocked *prometheus.CounterVec
}

// New registers the milestone metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		unlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pantheon_milestones_unlocked_total",
			Help: "Total milestone completions, by milestone.",
		}, []string{"milestone"}),
	}
}

func (m *Metrics) IncrementUnlocked(milestoneID string) {
	m.unlocked.WithLabelValues(milestoneID).Inc()
}
