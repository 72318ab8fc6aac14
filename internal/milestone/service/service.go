// Package service implements the milestone engine: reactive trigger
// evaluation, rank grants, prestige payouts, and active bonus aggregation.
package service

import (
	"context"
	"errors"
	"log/slog"

	"pantheon/internal/events"
	mileMetrics "pantheon/internal/milestone/metrics"
	"pantheon/internal/milestone/models"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/platform/sentinel"
	"pantheon/pkg/requestcontext"
)

// MilestoneStore is the per-civilization state store the engine depends on.
type MilestoneStore interface {
	Find(ctx context.Context, civID id.CivilizationID) (*models.CivState, error)
	Execute(ctx context.Context, civID id.CivilizationID, validate func(st *models.CivState) error, mutate func(st *models.CivState)) (*models.CivState, error)
	Delete(ctx context.Context, civID id.CivilizationID)
}

// CivilizationDirectory answers composition queries about a civilization.
type CivilizationDirectory interface {
	MembersOf(ctx context.Context, civID id.CivilizationID) ([]id.ReligionID, error)
	FounderReligionOf(ctx context.Context, civID id.CivilizationID) (id.ReligionID, error)
}

// ReligionDirectory answers aggregate queries about member religions.
type ReligionDirectory interface {
	DomainOf(ctx context.Context, religionID id.ReligionID) (string, error)
	MemberCountOf(ctx context.Context, religionID id.ReligionID) (int, error)
}

// PrestigeAwarder pays milestone prestige into the founding religion.
type PrestigeAwarder interface {
	GrantPrestige(ctx context.Context, religionID id.ReligionID, amount int64) error
	UnlockBlessing(ctx context.Context, religionID id.ReligionID, blessingID string) error
}

// EventPublisher dispatches domain events after store locks are released.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service is the milestone engine.
type Service struct {
	store     MilestoneStore
	civs      CivilizationDirectory
	religions ReligionDirectory
	rewards   PrestigeAwarder
	bus       EventPublisher
	logger    *slog.Logger
	metrics   *mileMetrics.Metrics
	catalog   []models.Definition
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the prometheus metrics.
func WithMetrics(m *mileMetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCatalog replaces the built-in milestone catalog.
func WithCatalog(catalog []models.Definition) Option {
	return func(s *Service) { s.catalog = catalog }
}

// New creates the milestone engine.
func New(store MilestoneStore, civs CivilizationDirectory, religions ReligionDirectory, rewards PrestigeAwarder, bus EventPublisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		civs:      civs,
		religions: religions,
		rewards:   rewards,
		bus:       bus,
		logger:    slog.Default(),
		catalog:   models.DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the milestone definitions in effect.
func (s *Service) Catalog() []models.Definition {
	out := make([]models.Definition, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// GetProgress returns a snapshot of the civilization's milestone state.
func (s *Service) GetProgress(ctx context.Context, civID id.CivilizationID) (*models.CivState, error) {
	state, err := s.store.Find(ctx, civID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.NewCivState(civID), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "milestone store failure")
	}
	return state, nil
}

// facts are the live aggregate counts a trigger can compare against.
// Counter-backed facts (rituals, war kills, holy sites) live in the state
// itself and are read under the store lock during evaluation.
type facts struct {
	religionCount  int64
	distinctDomain int64
	totalMembers   int64
}

// CheckMilestones re-evaluates every trigger for the civilization. First
// crossings are marked completed once; re-evaluating a completed milestone
// is a no-op, so the call is idempotent. Completions cascade within a single
// call so a final major completion can satisfy the all-majors trigger
// immediately.
func (s *Service) CheckMilestones(ctx context.Context, civID id.CivilizationID) ([]models.Definition, error) {
	f, err := s.gatherFacts(ctx, civID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var completed []models.Definition
	_, err = s.store.Execute(ctx, civID, nil, func(st *models.CivState) {
		for {
			progressed := false
			for _, def := range s.catalog {
				p := st.ProgressFor(def)
				current := s.factValue(def.Trigger, f, st)
				if current > p.Current {
					p.Current = current
				}
				if p.Completed || !crossed(def.Trigger, current) {
					continue
				}
				p.Completed = true
				p.CompletedAt = &now
				if def.Benefit != nil && def.Benefit.Duration != nil {
					expires := now.Add(*def.Benefit.Duration)
					p.BenefitExpiresAt = &expires
				}
				if def.Major {
					st.Rank += def.RankReward
				}
				completed = append(completed, def)
				progressed = true
			}
			if !progressed {
				break
			}
		}
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "milestone evaluation failed")
	}

	for _, def := range completed {
		s.grant(ctx, civID, def)
	}
	return completed, nil
}

// GetActiveBonuses folds every completed milestone's benefit into one set,
// excluding temporary benefits past their expiry.
func (s *Service) GetActiveBonuses(ctx context.Context, civID id.CivilizationID) (models.Bonuses, error) {
	bonuses := models.NeutralBonuses()
	state, err := s.store.Find(ctx, civID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return bonuses, nil
		}
		return bonuses, dErrors.Wrap(err, dErrors.CodeInternal, "milestone store failure")
	}

	now := requestcontext.Now(ctx)
	for _, def := range s.catalog {
		p, ok := state.Progress[def.ID]
		if !ok || !p.Completed || def.Benefit == nil {
			continue
		}
		if p.BenefitExpiresAt != nil && !now.Before(*p.BenefitExpiresAt) {
			continue
		}
		bonuses.Apply(def.Benefit)
	}
	return bonuses, nil
}

// RecordWarKill increments the war-kill counter and re-evaluates.
func (s *Service) RecordWarKill(ctx context.Context, civID id.CivilizationID) error {
	_, err := s.store.Execute(ctx, civID, nil, func(st *models.CivState) {
		st.WarKills++
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record war kill")
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindWarKillRecorded, CivilizationID: civID})
	_, err = s.CheckMilestones(ctx, civID)
	return err
}

// RecordRitual increments the completed-ritual counter and re-evaluates.
func (s *Service) RecordRitual(ctx context.Context, civID id.CivilizationID) error {
	_, err := s.store.Execute(ctx, civID, nil, func(st *models.CivState) {
		st.Rituals++
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ritual")
	}
	s.bus.Publish(ctx, events.Event{Kind: events.KindRitualCompleted, CivilizationID: civID})
	_, err = s.CheckMilestones(ctx, civID)
	return err
}

// RecordHolySite updates the holy-site count and highest tier reached, then
// re-evaluates. Counts never decrease milestone progress already banked.
func (s *Service) RecordHolySite(ctx context.Context, civID id.CivilizationID, count int64, tier int) error {
	_, err := s.store.Execute(ctx, civID, nil, func(st *models.CivState) {
		st.HolySites = count
		if tier > st.MaxHolyTier {
			st.MaxHolyTier = tier
		}
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record holy site change")
	}
	s.bus.Publish(ctx, events.Event{
		Kind: events.KindHolySiteChanged, CivilizationID: civID, HolySiteTier: tier,
	})
	_, err = s.CheckMilestones(ctx, civID)
	return err
}

// HandleEvent reacts to upstream domain events: membership changes and
// relationship formation re-trigger evaluation, disbands discard state.
func (s *Service) HandleEvent(ctx context.Context, event events.Event) {
	switch event.Kind {
	case events.KindReligionJoinedCivilization, events.KindReligionLeftCivilization:
		s.recheck(ctx, event.CivilizationID)
	case events.KindRelationshipEstablished, events.KindWarDeclared:
		kind := event.RelationshipStatus
		for _, civID := range []id.CivilizationID{event.CivilizationID, event.OtherCivilizationID} {
			_, err := s.store.Execute(ctx, civID, nil, func(st *models.CivState) {
				st.RelationshipKindsFormed[kind] = true
			})
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to record relationship formation",
					"civilization_id", civID, "error", err.Error())
				continue
			}
			s.recheck(ctx, civID)
		}
	case events.KindCivilizationDisbanded:
		s.store.Delete(ctx, event.CivilizationID)
	}
}

func (s *Service) recheck(ctx context.Context, civID id.CivilizationID) {
	if _, err := s.CheckMilestones(ctx, civID); err != nil {
		s.logger.ErrorContext(ctx, "milestone re-check failed",
			"civilization_id", civID, "error", err.Error())
	}
}

// gatherFacts snapshots the live aggregate counts a trigger may reference.
// A missing civilization yields zero facts rather than an error so stale
// events after a disband are harmless.
func (s *Service) gatherFacts(ctx context.Context, civID id.CivilizationID) (facts, error) {
	var f facts
	members, err := s.civs.MembersOf(ctx, civID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return f, nil
		}
		return f, err
	}

	f.religionCount = int64(len(members))
	domains := make(map[string]bool)
	for _, religionID := range members {
		if domain, err := s.religions.DomainOf(ctx, religionID); err == nil {
			domains[domain] = true
		}
		if count, err := s.religions.MemberCountOf(ctx, religionID); err == nil {
			f.totalMembers += int64(count)
		}
	}
	f.distinctDomain = int64(len(domains))
	return f, nil
}

// factValue maps a trigger to its current numeric standing for progress
// display. Boolean triggers report 0 or 1.
func (s *Service) factValue(trigger models.Trigger, f facts, st *models.CivState) int64 {
	switch trigger.Kind {
	case models.TriggerReligionCount:
		return f.religionCount
	case models.TriggerDistinctDomainCount:
		return f.distinctDomain
	case models.TriggerTotalMemberCount:
		return f.totalMembers
	case models.TriggerRitualCount:
		return st.Rituals
	case models.TriggerWarKillCount:
		return st.WarKills
	case models.TriggerHolySiteCount:
		return st.HolySites
	case models.TriggerHolySiteTier:
		if st.MaxHolyTier >= trigger.Tier {
			return 1
		}
	case models.TriggerRelationshipFormed:
		if st.RelationshipKindsFormed[trigger.RelationshipKind] {
			return 1
		}
	case models.TriggerAllMajorMilestones:
		if s.allOtherMajorsCompleted(st) {
			return 1
		}
	}
	return 0
}

// crossed reports whether the trigger condition currently holds.
func crossed(trigger models.Trigger, current int64) bool {
	switch trigger.Kind {
	case models.TriggerHolySiteTier, models.TriggerRelationshipFormed, models.TriggerAllMajorMilestones:
		return current >= 1
	default:
		return current >= trigger.Threshold
	}
}

// allOtherMajorsCompleted reports whether every major milestone except the
// all-majors one itself is completed.
func (s *Service) allOtherMajorsCompleted(st *models.CivState) bool {
	for _, def := range s.catalog {
		if !def.Major || def.Trigger.Kind == models.TriggerAllMajorMilestones {
			continue
		}
		if !st.IsCompleted(def.ID) {
			return false
		}
	}
	return true
}

// grant performs a completed milestone's side effects: prestige payout into
// the founding religion, shared blessings into every member religion, plus
// events and metrics.
func (s *Service) grant(ctx context.Context, civID id.CivilizationID, def models.Definition) {
	s.logger.InfoContext(ctx, "milestone unlocked",
		"civilization_id", civID, "milestone", def.ID, "major", def.Major)
	if s.metrics != nil {
		s.metrics.IncrementUnlocked(def.ID)
	}

	if def.PrestigePayout > 0 {
		founderReligion, err := s.civs.FounderReligionOf(ctx, civID)
		if err != nil {
			s.logger.WarnContext(ctx, "milestone prestige payout skipped, founding religion unknown",
				"civilization_id", civID, "milestone", def.ID, "error", err.Error())
		} else if err := s.rewards.GrantPrestige(ctx, founderReligion, def.PrestigePayout); err != nil {
			s.logger.ErrorContext(ctx, "milestone prestige payout failed",
				"civilization_id", civID, "milestone", def.ID, "error", err.Error())
		}
	}
	if def.Benefit != nil && def.Benefit.Kind == models.BenefitSharedBlessing {
		members, err := s.civs.MembersOf(ctx, civID)
		if err != nil {
			s.logger.WarnContext(ctx, "milestone blessing skipped, members unknown",
				"civilization_id", civID, "milestone", def.ID, "error", err.Error())
		}
		for _, member := range members {
			if err := s.rewards.UnlockBlessing(ctx, member, def.Benefit.BlessingID); err != nil {
				s.logger.ErrorContext(ctx, "milestone blessing unlock failed",
					"civilization_id", civID, "religion_id", member,
					"milestone", def.ID, "error", err.Error())
			}
		}
	}

	s.bus.Publish(ctx, events.Event{
		Kind:           events.KindMilestoneUnlocked,
		CivilizationID: civID,
		MilestoneID:    def.ID,
	})
	if def.Major && def.RankReward > 0 {
		if state, err := s.store.Find(ctx, civID); err == nil {
			s.bus.Publish(ctx, events.Event{
				Kind:           events.KindRankIncreased,
				CivilizationID: civID,
				MilestoneID:    def.ID,
				Rank:           state.Rank,
			})
		}
	}
}
