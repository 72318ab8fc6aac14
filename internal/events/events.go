// Package events is the in-process domain event bus. Services publish events
// after releasing their own aggregate lock; subscribers run synchronously in
// registration order. That keeps cross-aggregate consistency (civilization
// cleanup on religion deletion, milestone re-checks on membership changes)
// free of lock-ordering deadlocks.
package events

import (
	"time"

	id "pantheon/pkg/domain"
)

// Kind names a domain event.
type Kind string

const (
	KindReligionDeleted            Kind = "religion.deleted"
	KindCivilizationDisbanded      Kind = "civilization.disbanded"
	KindReligionJoinedCivilization Kind = "civilization.religion_joined"
	KindReligionLeftCivilization   Kind = "civilization.religion_left"
	KindRelationshipEstablished    Kind = "diplomacy.relationship_established"
	KindRelationshipEnded          Kind = "diplomacy.relationship_ended"
	KindWarDeclared                Kind = "diplomacy.war_declared"
	KindMilestoneUnlocked          Kind = "milestone.unlocked"
	KindRankIncreased              Kind = "milestone.rank_increased"
	KindRitualCompleted            Kind = "reward.ritual_completed"
	KindHolySiteChanged            Kind = "reward.holy_site_changed"
	KindWarKillRecorded            Kind = "reward.war_kill_recorded"
)

// Event is emitted from domain logic to capture key actions. It is a flat
// struct so sinks can fan out without type switches; unset fields stay zero.
type Event struct {
	Kind      Kind
	Timestamp time.Time

	ActorID             id.PlayerID
	ReligionID          id.ReligionID
	CivilizationID      id.CivilizationID
	OtherCivilizationID id.CivilizationID
	RelationshipID      id.RelationshipID

	// RelationshipStatus carries the pact/alliance/war label on diplomacy
	// events.
	RelationshipStatus string
	// MilestoneID and Rank describe milestone events.
	MilestoneID string
	Rank        int
	// HolySiteTier carries the reached tier on holy site events.
	HolySiteTier int
}
