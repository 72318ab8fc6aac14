// Package metrics exposes prometheus counters for diplomacy activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the diplomacy counters.
type Metrics struct {
	proposals   *prometheus.CounterVec
	established *prometheus.CounterVec
	wars        prometheus.Counter
	violations  prometheus.Counter
}

// New registers the diplomacy metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		proposals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pantheon_diplomacy_proposals_total",
			Help: "Total diplomatic proposals sent, by proposed status.",
		}, []string{"status"}),
		established: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pantheon_diplomacy_relationships_established_total",
			Help: "Total relationships established, by status.",
		}, []string{"status"}),
		wars: factory.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_diplomacy_wars_declared_total",
			Help: "Total wars declared.",
		}),
		violations: factory.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_diplomacy_pvp_violations_total",
			Help: "Total PvP violations recorded against standing relationships.",
		}),
	}
}

func (m *Metrics) IncrementProposals(status string)   { m.proposals.WithLabelValues(status).Inc() }
func (m *Metrics) IncrementEstablished(status string) { m.established.WithLabelValues(status).Inc() }
func (m *Metrics) IncrementWarsDeclared()             { m.wars.Inc() }
func (m *Metrics) IncrementViolations()               { m.violations.Inc() }
