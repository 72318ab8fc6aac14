// Package models holds the diplomacy records: standing relationships between
// civilization pairs and the proposals that establish them.
package models

import (
	"time"

	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
)

// Status is the kind of standing between two civilizations.
type Status string

const (
	StatusNonAggressionPact Status = "non_aggression_pact"
	StatusAlliance          Status = "alliance"
	StatusWar               Status = "war"
)

// ParseStatus validates a status label from the outside.
func ParseStatus(label string) (Status, error) {
	switch Status(label) {
	case StatusNonAggressionPact, StatusAlliance, StatusWar:
		return Status(label), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown relationship status: "+label)
}

// Proposable reports whether the status can be established via proposal.
// War is declared unilaterally, never proposed.
func (s Status) Proposable() bool {
	return s == StatusNonAggressionPact || s == StatusAlliance
}

// PairKey is the canonical identifier for an unordered civilization pair:
// the two IDs joined in lexicographic order. Both orderings of the same pair
// produce the same key.
type PairKey string

// NewPairKey canonicalizes the pair.
func NewPairKey(a, b id.CivilizationID) PairKey {
	as, bs := a.String(), b.String()
	if as > bs {
		as, bs = bs, as
	}
	return PairKey(as + "|" + bs)
}

// Relationship is the standing state between two civilizations. The pair is
// unordered; CivA/CivB are stored in canonical key order.
type Relationship struct {
	ID   id.RelationshipID `json:"id"`
	CivA id.CivilizationID `json:"civ_a"`
	CivB id.CivilizationID `json:"civ_b"`

	Status      Status            `json:"status"`
	InitiatedBy id.CivilizationID `json:"initiated_by"`

	EstablishedAt time.Time `json:"established_at"`
	// ExpiresAt is nil for permanent relationships (typically alliances).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// BreakScheduledAt, when set, suspends the relationship immediately and
	// marks it for removal once the grace window elapses.
	BreakScheduledAt *time.Time `json:"break_scheduled_at,omitempty"`

	ViolationCount int `json:"violation_count"`
}

// NewRelationship creates a relationship with the pair in canonical order.
func NewRelationship(a, b id.CivilizationID, status Status, initiatedBy id.CivilizationID, now time.Time, expiresAt *time.Time) *Relationship {
	if a.String() > b.String() {
		a, b = b, a
	}
	return &Relationship{
		ID:            id.NewRelationshipID(),
		CivA:          a,
		CivB:          b,
		Status:        status,
		InitiatedBy:   initiatedBy,
		EstablishedAt: now,
		ExpiresAt:     expiresAt,
	}
}

// Key returns the canonical pair key.
func (r *Relationship) Key() PairKey {
	return NewPairKey(r.CivA, r.CivB)
}

// Involves reports whether the civilization is one side of the pair.
func (r *Relationship) Involves(civID id.CivilizationID) bool {
	return r.CivA == civID || r.CivB == civID
}

// Other returns the opposite side of the pair from civID.
func (r *Relationship) Other(civID id.CivilizationID) id.CivilizationID {
	if r.CivA == civID {
		return r.CivB
	}
	return r.CivA
}

// Expired reports whether the relationship is past its expiry.
func (r *Relationship) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// BreakElapsed reports whether a scheduled break's grace window has passed.
func (r *Relationship) BreakElapsed(now time.Time) bool {
	return r.BreakScheduledAt != nil && !now.Before(*r.BreakScheduledAt)
}

// IsActive reports whether the relationship currently confers its effects.
// Scheduling a break suspends it immediately, before the record is removed.
func (r *Relationship) IsActive(now time.Time) bool {
	return !r.Expired(now) && r.BreakScheduledAt == nil
}

// Clone returns a deep copy safe to hand outside the store lock.
func (r *Relationship) Clone() *Relationship {
	cp := *r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		cp.ExpiresAt = &t
	}
	if r.BreakScheduledAt != nil {
		t := *r.BreakScheduledAt
		cp.BreakScheduledAt = &t
	}
	return &cp
}

// Proposal is a time-limited directional offer to establish a relationship.
type Proposal struct {
	ID       id.ProposalID     `json:"id"`
	Proposer id.CivilizationID `json:"proposer"`
	Target   id.CivilizationID `json:"target"`
	Status   Status            `json:"status"`
	// RequestedDuration, when set, becomes the relationship's lifetime on
	// acceptance. Nil means permanent.
	RequestedDuration *time.Duration `json:"requested_duration,omitempty"`
	SentAt            time.Time      `json:"sent_at"`
	ExpiresAt         time.Time      `json:"expires_at"`
}

// Expired reports whether the proposal is past its expiry.
func (p *Proposal) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// Key returns the canonical pair key for the proposal's two civilizations.
func (p *Proposal) Key() PairKey {
	return NewPairKey(p.Proposer, p.Target)
}

// Clone returns a deep copy safe to hand outside the store lock.
func (p *Proposal) Clone() *Proposal {
	cp := *p
	if p.RequestedDuration != nil {
		d := *p.RequestedDuration
		cp.RequestedDuration = &d
	}
	return &cp
}

// FavorMultiplier maps the standing between attacker and victim to a reward
// multiplier: war pays extra, attacking an ally pays nothing, anything else
// is neutral.
func FavorMultiplier(r *Relationship, now time.Time) float64 {
	if r == nil || !r.IsActive(now) {
		return 1.0
	}
	switch r.Status {
	case StatusWar:
		return 1.5
	case StatusAlliance:
		return 0.0
	default:
		return 1.0
	}
}
