// Package models holds the milestone catalog types and per-civilization
// progress state.
package models

import (
	"time"

	id "pantheon/pkg/domain"
)

// TriggerKind names the aggregate fact a milestone threshold is compared
// against.
type TriggerKind string

const (
	TriggerReligionCount       TriggerKind = "religion_count"
	TriggerDistinctDomainCount TriggerKind = "distinct_domain_count"
	TriggerHolySiteCount       TriggerKind = "holy_site_count"
	TriggerRitualCount         TriggerKind = "ritual_count"
	TriggerTotalMemberCount    TriggerKind = "total_member_count"
	TriggerWarKillCount        TriggerKind = "war_kill_count"
	TriggerHolySiteTier        TriggerKind = "holy_site_tier"
	TriggerRelationshipFormed  TriggerKind = "relationship_formed"
	TriggerAllMajorMilestones  TriggerKind = "all_major_milestones"
)

// Trigger is a threshold against one aggregate fact.
type Trigger struct {
	Kind      TriggerKind `json:"kind"`
	Threshold int64       `json:"threshold,omitempty"`
	// RelationshipKind narrows TriggerRelationshipFormed to one status.
	RelationshipKind string `json:"relationship_kind,omitempty"`
	// Tier narrows TriggerHolySiteTier to the tier that must be reached.
	Tier int `json:"tier,omitempty"`
}

// BenefitKind names what a completed milestone grants.
type BenefitKind string

const (
	BenefitPrestigeMultiplier BenefitKind = "prestige_multiplier"
	BenefitFavorMultiplier    BenefitKind = "favor_multiplier"
	BenefitConquestMultiplier BenefitKind = "conquest_multiplier"
	BenefitHolySiteCapacity   BenefitKind = "holy_site_capacity"
	BenefitSharedBlessing     BenefitKind = "shared_blessing"
)

// Benefit is a permanent or temporary grant attached to a milestone.
// Duration nil means permanent.
type Benefit struct {
	Kind       BenefitKind    `json:"kind"`
	Multiplier float64        `json:"multiplier,omitempty"`
	Capacity   int            `json:"capacity,omitempty"`
	BlessingID string         `json:"blessing_id,omitempty"`
	Duration   *time.Duration `json:"duration,omitempty"`
}

// Definition is one entry in the milestone catalog.
type Definition struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Major       bool    `json:"major"`
	Trigger     Trigger `json:"trigger"`
	// RankReward applies to major milestones only.
	RankReward     int      `json:"rank_reward,omitempty"`
	PrestigePayout int64    `json:"prestige_payout,omitempty"`
	Benefit        *Benefit `json:"benefit,omitempty"`
}

// Progress tracks one civilization's standing against one milestone.
// Completion is monotonic.
type Progress struct {
	MilestoneID string     `json:"milestone_id"`
	Current     int64      `json:"current"`
	Target      int64      `json:"target"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// BenefitExpiresAt is set for temporary benefits on completion.
	BenefitExpiresAt *time.Time `json:"benefit_expires_at,omitempty"`
}

// CivState is the milestone engine's per-civilization aggregate: rank,
// raw counters, diplomatic facts, and per-milestone progress.
type CivState struct {
	CivilizationID id.CivilizationID `json:"civilization_id"`
	Rank           int               `json:"rank"`

	WarKills    int64 `json:"war_kills"`
	Rituals     int64 `json:"rituals"`
	HolySites   int64 `json:"holy_sites"`
	MaxHolyTier int   `json:"max_holy_tier"`
	// RelationshipKindsFormed records each relationship status the
	// civilization has ever entered.
	RelationshipKindsFormed map[string]bool      `json:"relationship_kinds_formed"`
	Progress                map[string]*Progress `json:"progress"`
}

// NewCivState creates empty milestone state for a civilization.
func NewCivState(civID id.CivilizationID) *CivState {
	return &CivState{
		CivilizationID:          civID,
		RelationshipKindsFormed: make(map[string]bool),
		Progress:                make(map[string]*Progress),
	}
}

// ProgressFor returns the progress record for a milestone, creating it on
// first touch.
func (s *CivState) ProgressFor(def Definition) *Progress {
	p, ok := s.Progress[def.ID]
	if !ok {
		p = &Progress{MilestoneID: def.ID, Target: def.Trigger.Threshold}
		s.Progress[def.ID] = p
	}
	return p
}

// IsCompleted reports whether the milestone has been completed.
func (s *CivState) IsCompleted(milestoneID string) bool {
	p, ok := s.Progress[milestoneID]
	return ok && p.Completed
}

// Clone returns a deep copy safe to hand outside the store lock.
func (s *CivState) Clone() *CivState {
	cp := *s
	cp.RelationshipKindsFormed = make(map[string]bool, len(s.RelationshipKindsFormed))
	for k, v := range s.RelationshipKindsFormed {
		cp.RelationshipKindsFormed[k] = v
	}
	cp.Progress = make(map[string]*Progress, len(s.Progress))
	for k, p := range s.Progress {
		pc := *p
		if p.CompletedAt != nil {
			t := *p.CompletedAt
			pc.CompletedAt = &t
		}
		if p.BenefitExpiresAt != nil {
			t := *p.BenefitExpiresAt
			pc.BenefitExpiresAt = &t
		}
		cp.Progress[k] = &pc
	}
	return &cp
}

// Bonuses is the combined effect of every active completed-milestone
// benefit. Multipliers combine multiplicatively; 1.0 means no effect.
type Bonuses struct {
	Prestige         float64  `json:"prestige"`
	Favor            float64  `json:"favor"`
	Conquest         float64  `json:"conquest"`
	HolySiteCapacity int      `json:"holy_site_capacity"`
	Blessings        []string `json:"blessings,omitempty"`
}

// NeutralBonuses is the identity element: all multipliers 1.0, no extras.
func NeutralBonuses() Bonuses {
	return Bonuses{Prestige: 1.0, Favor: 1.0, Conquest: 1.0}
}

// Apply folds one benefit into the set.
func (b *Bonuses) Apply(benefit *Benefit) {
	if benefit == nil {
		return
	}
	switch benefit.Kind {
	case BenefitPrestigeMultiplier:
		b.Prestige *= benefit.Multiplier
	case BenefitFavorMultiplier:
		b.Favor *= benefit.Multiplier
	case BenefitConquestMultiplier:
		b.Conquest *= benefit.Multiplier
	case BenefitHolySiteCapacity:
		b.HolySiteCapacity += benefit.Capacity
	case BenefitSharedBlessing:
		b.Blessings = append(b.Blessings, benefit.BlessingID)
	}
}
