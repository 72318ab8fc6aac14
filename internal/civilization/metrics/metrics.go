// Package metrics exposes prometheus counters for civilization activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the civilization counters.
type Metrics struct {
	created         prometheus.Counter
	disbanded       prometheus.Counter
	invitesSent     prometheus.Counter
	invitesAccepted prometheus.Counter
}

// New registers the civilization metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		created: factory.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_civilizations_created_total",
			Help: "Total civilizations founded.",
		}),
		disbanded: factory.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_civilizations_disbanded_total",
			Help: "Total civilizations disbanded.",
		}),
		invitesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_civilization_invites_sent_total",
			Help: "Total civilization invites sent.",
		}),
		invitesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pantheon_civilization_invites_accepted_total",
			Help: "Total civilization invites accepted.",
		}),
	}
}

func (m *Metrics) IncrementCreated()         { m.created.Inc() }
func (m *Metrics) IncrementDisbanded()       { m.disbanded.Inc() }
func (m *Metrics) IncrementInvitesSent()     { m.invitesSent.Inc() }
func (m *Metrics) IncrementInvitesAccepted() { m.invitesAccepted.Inc() }
