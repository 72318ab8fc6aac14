// Package service implements the diplomacy state machine. One service
// instance covers every civilization pair; per-pair state lives in the store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	dipMetrics "pantheon/internal/diplomacy/metrics"
	"pantheon/internal/diplomacy/models"
	"pantheon/internal/events"
	"pantheon/internal/platform/config"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/platform/sentinel"
	"pantheon/pkg/requestcontext"
)

// DiplomacyStore is the relationship/proposal table the service depends on.
type DiplomacyStore interface {
	PutRelationship(ctx context.Context, rel *models.Relationship)
	FindRelationship(ctx context.Context, a, b id.CivilizationID) (*models.Relationship, error)
	RelationshipsOf(ctx context.Context, civID id.CivilizationID) ([]*models.Relationship, error)
	ExecuteRelationship(ctx context.Context, a, b id.CivilizationID, validate func(r *models.Relationship) error, mutate func(r *models.Relationship)) (*models.Relationship, error)
	DeleteRelationship(ctx context.Context, a, b id.CivilizationID) (*models.Relationship, error)

	PutProposal(ctx context.Context, proposal *models.Proposal) error
	FindProposal(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error)
	FindProposalByDirection(ctx context.Context, proposer, target id.CivilizationID) (*models.Proposal, error)
	ProposalsFor(ctx context.Context, target id.CivilizationID) ([]*models.Proposal, error)
	DeleteProposal(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error)

	PurgeCivilization(ctx context.Context, civID id.CivilizationID) []*models.Relationship
	RelationshipPairs(ctx context.Context) [][2]id.CivilizationID
	ProposalIDs(ctx context.Context) []id.ProposalID
}

// CivilizationDirectory answers founder-identity authorization queries.
type CivilizationDirectory interface {
	FounderOf(ctx context.Context, civID id.CivilizationID) (id.PlayerID, error)
}

// EventPublisher dispatches domain events after store locks are released.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service runs proposals, treaties, wars, and the periodic sweep.
type Service struct {
	store       DiplomacyStore
	civs        CivilizationDirectory
	bus         EventPublisher
	logger      *slog.Logger
	metrics     *dipMetrics.Metrics
	proposalTTL time.Duration
	breakGrace  time.Duration
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the prometheus metrics.
func WithMetrics(m *dipMetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProposalTTL overrides the proposal validity window.
func WithProposalTTL(ttl time.Duration) Option {
	return func(s *Service) { s.proposalTTL = ttl }
}

// WithBreakGracePeriod overrides the treaty break warning window.
func WithBreakGracePeriod(grace time.Duration) Option {
	return func(s *Service) { s.breakGrace = grace }
}

// New creates the diplomacy service.
func New(store DiplomacyStore, civs CivilizationDirectory, bus EventPublisher, opts ...Option) *Service {
	s := &Service{
		store:       store,
		civs:        civs,
		bus:         bus,
		logger:      slog.Default(),
		proposalTTL: config.ProposalTTL,
		breakGrace:  config.BreakGracePeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProposeRelationship creates a directional proposal from proposer to
// target. If the target already has a pending opposite-direction proposal of
// the same status, the two offers agree and the pending one is accepted on
// the spot; a pending opposite-direction proposal of a different status is a
// conflict that must be declined first.
func (s *Service) ProposeRelationship(ctx context.Context, actor id.PlayerID, proposer, target id.CivilizationID, statusLabel string, requestedDuration *time.Duration) (*models.Proposal, *models.Relationship, error) {
	status, err := models.ParseStatus(statusLabel)
	if err != nil {
		return nil, nil, err
	}
	if !status.Proposable() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "war is declared, not proposed")
	}
	if proposer == target {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "a civilization cannot propose to itself")
	}
	if err := s.requireFounder(ctx, actor, proposer); err != nil {
		return nil, nil, err
	}

	now := requestcontext.Now(ctx)
	if rel, err := s.store.FindRelationship(ctx, proposer, target); err == nil && !rel.Expired(now) {
		return nil, nil, dErrors.New(dErrors.CodeConflict, "a relationship already exists for this pair")
	}

	if counter, err := s.store.FindProposalByDirection(ctx, target, proposer); err == nil && !counter.Expired(now) {
		if counter.Status != status {
			return nil, nil, dErrors.New(dErrors.CodeConflict,
				"the other civilization has a pending proposal of a different kind; decline it first")
		}
		// Both sides want the same standing; treat this as acceptance of
		// the pending offer.
		rel, err := s.establishFromProposal(ctx, counter, now)
		if err != nil {
			return nil, nil, err
		}
		return nil, rel, nil
	}

	proposal := &models.Proposal{
		ID:                id.NewProposalID(),
		Proposer:          proposer,
		Target:            target,
		Status:            status,
		RequestedDuration: requestedDuration,
		SentAt:            now,
		ExpiresAt:         now.Add(s.proposalTTL),
	}
	if err := s.store.PutProposal(ctx, proposal); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "an identical proposal is already pending")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record proposal")
	}

	if s.metrics != nil {
		s.metrics.IncrementProposals(string(status))
	}
	s.logger.InfoContext(ctx, "relationship proposed",
		"proposer", proposer, "target", target, "status", status)
	return proposal, nil, nil
}

// ListProposals returns the pending proposals targeting the civilization.
func (s *Service) ListProposals(ctx context.Context, target id.CivilizationID) ([]*models.Proposal, error) {
	return s.store.ProposalsFor(ctx, target)
}

// AcceptProposal consumes the proposal and establishes the Active
// relationship. The actor must be the target civilization's founder.
func (s *Service) AcceptProposal(ctx context.Context, actor id.PlayerID, proposalID id.ProposalID) (*models.Relationship, error) {
	proposal, err := s.store.FindProposal(ctx, proposalID)
	if err != nil {
		return nil, wrapDiplomacyErr(err, "proposal not found")
	}
	now := requestcontext.Now(ctx)
	if proposal.Expired(now) {
		_, _ = s.store.DeleteProposal(ctx, proposalID)
		return nil, dErrors.New(dErrors.CodeConflict, "proposal has expired")
	}
	if err := s.requireFounder(ctx, actor, proposal.Target); err != nil {
		return nil, err
	}
	return s.establishFromProposal(ctx, proposal, now)
}

// DeclineProposal removes the proposal without establishing anything. The
// actor must be the target civilization's founder.
func (s *Service) DeclineProposal(ctx context.Context, actor id.PlayerID, proposalID id.ProposalID) error {
	proposal, err := s.store.FindProposal(ctx, proposalID)
	if err != nil {
		return wrapDiplomacyErr(err, "proposal not found")
	}
	if err := s.requireFounder(ctx, actor, proposal.Target); err != nil {
		return err
	}
	if _, err := s.store.DeleteProposal(ctx, proposalID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove proposal")
	}
	return nil
}

// GetRelationship returns the standing between the pair, if any.
func (s *Service) GetRelationship(ctx context.Context, a, b id.CivilizationID) (*models.Relationship, error) {
	rel, err := s.store.FindRelationship(ctx, a, b)
	if err != nil {
		return nil, wrapDiplomacyErr(err, "no relationship between these civilizations")
	}
	return rel, nil
}

// ListRelationships returns every relationship the civilization appears in.
func (s *Service) ListRelationships(ctx context.Context, civID id.CivilizationID) ([]*models.Relationship, error) {
	return s.store.RelationshipsOf(ctx, civID)
}

// ScheduleBreak marks the relationship for removal after the grace window.
// Benefits are suspended immediately. Either founder may schedule.
func (s *Service) ScheduleBreak(ctx context.Context, actor id.PlayerID, a, b id.CivilizationID) (*models.Relationship, error) {
	if err := s.requireEitherFounder(ctx, actor, a, b); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	breakAt := now.Add(s.breakGrace)
	rel, err := s.store.ExecuteRelationship(ctx, a, b,
		func(r *models.Relationship) error {
			if r.Status == models.StatusWar {
				return dErrors.New(dErrors.CodeInvalidState, "wars end through peace, not scheduled breaks")
			}
			if r.BreakScheduledAt != nil {
				return dErrors.New(dErrors.CodeConflict, "a break is already scheduled")
			}
			return nil
		},
		func(r *models.Relationship) {
			r.BreakScheduledAt = &breakAt
		})
	if err != nil {
		return nil, wrapDiplomacyErr(err, "no relationship between these civilizations")
	}
	s.logger.InfoContext(ctx, "treaty break scheduled",
		"civ_a", a, "civ_b", b, "break_at", breakAt, "actor", actor)
	return rel, nil
}

// CancelScheduledBreak clears a pending break, restoring the relationship to
// Active. Either founder may cancel.
func (s *Service) CancelScheduledBreak(ctx context.Context, actor id.PlayerID, a, b id.CivilizationID) (*models.Relationship, error) {
	if err := s.requireEitherFounder(ctx, actor, a, b); err != nil {
		return nil, err
	}
	rel, err := s.store.ExecuteRelationship(ctx, a, b,
		func(r *models.Relationship) error {
			if r.BreakScheduledAt == nil {
				return dErrors.New(dErrors.CodeInvalidState, "no break is scheduled")
			}
			return nil
		},
		func(r *models.Relationship) {
			r.BreakScheduledAt = nil
		})
	if err != nil {
		return nil, wrapDiplomacyErr(err, "no relationship between these civilizations")
	}
	s.logger.InfoContext(ctx, "treaty break cancelled", "civ_a", a, "civ_b", b, "actor", actor)
	return rel, nil
}

// DeclareWar unilaterally overwrites whatever standing the pair had with a
// war record. No proposal or acceptance is involved.
func (s *Service) DeclareWar(ctx context.Context, actor id.PlayerID, aggressor, defender id.CivilizationID) (*models.Relationship, error) {
	if aggressor == defender {
		return nil, dErrors.New(dErrors.CodeValidation, "a civilization cannot declare war on itself")
	}
	if err := s.requireFounder(ctx, actor, aggressor); err != nil {
		return nil, err
	}
	if _, err := s.civs.FounderOf(ctx, defender); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if existing, err := s.store.FindRelationship(ctx, aggressor, defender); err == nil &&
		existing.Status == models.StatusWar {
		return nil, dErrors.New(dErrors.CodeConflict, "these civilizations are already at war")
	}

	rel := models.NewRelationship(aggressor, defender, models.StatusWar, aggressor, now, nil)
	s.store.PutRelationship(ctx, rel)

	if s.metrics != nil {
		s.metrics.IncrementWarsDeclared()
	}
	s.logger.InfoContext(ctx, "war declared",
		"aggressor", aggressor, "defender", defender, "actor", actor)
	s.bus.Publish(ctx, events.Event{
		Kind:                events.KindWarDeclared,
		ActorID:             actor,
		CivilizationID:      aggressor,
		OtherCivilizationID: defender,
		RelationshipID:      rel.ID,
		RelationshipStatus:  string(models.StatusWar),
	})
	return rel, nil
}

// DeclarePeace removes the war record, returning the pair to neutral.
// Either founder may sue for peace.
func (s *Service) DeclarePeace(ctx context.Context, actor id.PlayerID, a, b id.CivilizationID) error {
	if err := s.requireEitherFounder(ctx, actor, a, b); err != nil {
		return err
	}
	rel, err := s.store.FindRelationship(ctx, a, b)
	if err != nil {
		return wrapDiplomacyErr(err, "no relationship between these civilizations")
	}
	if rel.Status != models.StatusWar {
		return dErrors.New(dErrors.CodeInvalidState, "these civilizations are not at war")
	}

	removed, err := s.store.DeleteRelationship(ctx, a, b)
	if err != nil {
		return wrapDiplomacyErr(err, "no relationship between these civilizations")
	}
	s.logger.InfoContext(ctx, "peace declared", "civ_a", a, "civ_b", b, "actor", actor)
	s.publishEnded(ctx, removed)
	return nil
}

// RecordPvPViolation increments the violation counter on the pair's
// relationship, if one exists. Combat between unrelated civilizations is not
// an error; there is simply nothing to record.
func (s *Service) RecordPvPViolation(ctx context.Context, attacker, victim id.CivilizationID) (int, error) {
	rel, err := s.store.ExecuteRelationship(ctx, attacker, victim, nil,
		func(r *models.Relationship) {
			r.ViolationCount++
		})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, nil
		}
		return 0, wrapDiplomacyErr(err, "no relationship between these civilizations")
	}
	if s.metrics != nil {
		s.metrics.IncrementViolations()
	}
	return rel.ViolationCount, nil
}

// GetFavorMultiplier maps the standing between attacker and victim to a
// combat reward multiplier.
func (s *Service) GetFavorMultiplier(ctx context.Context, attacker, victim id.CivilizationID) float64 {
	rel, err := s.store.FindRelationship(ctx, attacker, victim)
	if err != nil {
		return 1.0
	}
	return models.FavorMultiplier(rel, requestcontext.Now(ctx))
}

// HandleCivilizationDisbanded purges every record referencing the disbanded
// civilization.
func (s *Service) HandleCivilizationDisbanded(ctx context.Context, event events.Event) {
	if event.Kind != events.KindCivilizationDisbanded {
		return
	}
	for _, rel := range s.store.PurgeCivilization(ctx, event.CivilizationID) {
		s.publishEnded(ctx, rel)
	}
}

// establishFromProposal converts an accepted proposal into an Active
// relationship and spends the proposal. A relationship recorded for the pair
// after the proposal was filed blocks acceptance: war in particular exits
// only through DeclarePeace, never by accepting a stale offer.
func (s *Service) establishFromProposal(ctx context.Context, proposal *models.Proposal, now time.Time) (*models.Relationship, error) {
	if existing, err := s.store.FindRelationship(ctx, proposal.Proposer, proposal.Target); err == nil && !existing.Expired(now) {
		if existing.Status == models.StatusWar {
			return nil, dErrors.New(dErrors.CodeConflict, "the civilizations are at war; declare peace first")
		}
		return nil, dErrors.New(dErrors.CodeConflict, "a relationship already exists for this pair")
	}
	if _, err := s.store.DeleteProposal(ctx, proposal.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "proposal was already resolved")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume proposal")
	}

	var expiresAt *time.Time
	if proposal.RequestedDuration != nil {
		t := now.Add(*proposal.RequestedDuration)
		expiresAt = &t
	}
	rel := models.NewRelationship(proposal.Proposer, proposal.Target, proposal.Status, proposal.Proposer, now, expiresAt)
	s.store.PutRelationship(ctx, rel)

	if s.metrics != nil {
		s.metrics.IncrementEstablished(string(proposal.Status))
	}
	s.logger.InfoContext(ctx, "relationship established",
		"civ_a", rel.CivA, "civ_b", rel.CivB, "status", rel.Status)
	s.bus.Publish(ctx, events.Event{
		Kind:                events.KindRelationshipEstablished,
		CivilizationID:      rel.CivA,
		OtherCivilizationID: rel.CivB,
		RelationshipID:      rel.ID,
		RelationshipStatus:  string(rel.Status),
	})
	return rel, nil
}

func (s *Service) publishEnded(ctx context.Context, rel *models.Relationship) {
	s.bus.Publish(ctx, events.Event{
		Kind:                events.KindRelationshipEnded,
		CivilizationID:      rel.CivA,
		OtherCivilizationID: rel.CivB,
		RelationshipID:      rel.ID,
		RelationshipStatus:  string(rel.Status),
	})
}

// requireFounder verifies the actor founded the civilization.
func (s *Service) requireFounder(ctx context.Context, actor id.PlayerID, civID id.CivilizationID) error {
	if actor.IsSystem() {
		return nil
	}
	founder, err := s.civs.FounderOf(ctx, civID)
	if err != nil {
		return err
	}
	if actor != founder {
		return dErrors.New(dErrors.CodeForbidden, "only the civilization founder may act for it")
	}
	return nil
}

// requireEitherFounder verifies the actor founded one side of the pair.
func (s *Service) requireEitherFounder(ctx context.Context, actor id.PlayerID, a, b id.CivilizationID) error {
	if actor.IsSystem() {
		return nil
	}
	if err := s.requireFounder(ctx, actor, a); err == nil {
		return nil
	} else if dErrors.HasCode(err, dErrors.CodeNotFound) || dErrors.HasCode(err, dErrors.CodeInternal) {
		return err
	}
	return s.requireFounder(ctx, actor, b)
}

// wrapDiplomacyErr translates store sentinels into coded domain errors.
func wrapDiplomacyErr(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "diplomacy state conflict")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "diplomacy store failure")
	}
}
