// Package service implements civilization lifecycle and invite orchestration.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	civMetrics "pantheon/internal/civilization/metrics"
	"pantheon/internal/civilization/models"
	"pantheon/internal/events"
	"pantheon/internal/platform/config"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/platform/sentinel"
	"pantheon/pkg/requestcontext"
)

// CivilizationStore is the aggregate store contract the service depends on.
type CivilizationStore interface {
	CreateIfAvailable(ctx context.Context, civ *models.Civilization) error
	FindByID(ctx context.Context, civID id.CivilizationID) (*models.Civilization, error)
	FindByReligion(ctx context.Context, religionID id.ReligionID) (*models.Civilization, error)
	List(ctx context.Context) ([]*models.Civilization, error)
	Execute(ctx context.Context, civID id.CivilizationID, validate func(c *models.Civilization) error, mutate func(c *models.Civilization)) (*models.Civilization, error)
	AddReligionIfFree(ctx context.Context, civID id.CivilizationID, religionID id.ReligionID) (*models.Civilization, error)
	Delete(ctx context.Context, civID id.CivilizationID) (*models.Civilization, error)

	PutInvite(ctx context.Context, invite *models.Invite, now time.Time) error
	FindInvite(ctx context.Context, inviteID id.InviteID) (*models.Invite, error)
	ListInvitesFor(ctx context.Context, religionID id.ReligionID) ([]*models.Invite, error)
	DeleteInvite(ctx context.Context, inviteID id.InviteID) (*models.Invite, error)
	DeleteInvitesForReligion(ctx context.Context, religionID id.ReligionID) int
	SweepExpiredInvites(ctx context.Context, now time.Time) int
}

// ReligionDirectory answers the religion queries civilization logic needs.
type ReligionDirectory interface {
	FounderOf(ctx context.Context, religionID id.ReligionID) (id.PlayerID, error)
	MemberCountOf(ctx context.Context, religionID id.ReligionID) (int, error)
}

// EventPublisher dispatches domain events after store locks are released.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service orchestrates civilization lifecycle, membership, and invites.
type Service struct {
	civs      CivilizationStore
	religions ReligionDirectory
	bus       EventPublisher
	logger    *slog.Logger
	metrics   *civMetrics.Metrics
	inviteTTL time.Duration
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the prometheus metrics.
func WithMetrics(m *civMetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithInviteTTL overrides the invite validity window.
func WithInviteTTL(ttl time.Duration) Option {
	return func(s *Service) { s.inviteTTL = ttl }
}

// New creates the civilization service.
func New(civs CivilizationStore, religions ReligionDirectory, bus EventPublisher, opts ...Option) *Service {
	s := &Service{
		civs:      civs,
		religions: religions,
		bus:       bus,
		logger:    slog.Default(),
		inviteTTL: config.InviteTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCivilization founds a civilization with the actor's religion as sole
// member. The actor must be that religion's founder.
func (s *Service) CreateCivilization(ctx context.Context, actor id.PlayerID, name string, founderReligion id.ReligionID) (*models.Civilization, error) {
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "acting player is required")
	}
	if err := s.requireFounder(ctx, actor, founderReligion); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	civ, err := models.NewCivilization(id.NewCivilizationID(), name, actor, founderReligion, now)
	if err != nil {
		return nil, err
	}

	if err := s.civs.CreateIfAvailable(ctx, civ); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "civilization name must be unique")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "religion already belongs to a civilization")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create civilization")
		}
	}
	s.refreshTotalMembers(ctx, civ.ID)

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "civilization founded",
		"civilization_id", civ.ID, "founder", actor, "religion_id", founderReligion)
	return civ, nil
}

// GetCivilization returns a snapshot of the civilization.
func (s *Service) GetCivilization(ctx context.Context, civID id.CivilizationID) (*models.Civilization, error) {
	civ, err := s.civs.FindByID(ctx, civID)
	if err != nil {
		return nil, wrapCivErr(err)
	}
	return civ, nil
}

// GetCivilizationOf returns the civilization the religion belongs to, if any.
func (s *Service) GetCivilizationOf(ctx context.Context, religionID id.ReligionID) (*models.Civilization, error) {
	civ, err := s.civs.FindByReligion(ctx, religionID)
	if err != nil {
		return nil, wrapCivErr(err)
	}
	return civ, nil
}

// ListCivilizations returns snapshots of every civilization.
func (s *Service) ListCivilizations(ctx context.Context) ([]*models.Civilization, error) {
	return s.civs.List(ctx)
}

// UpdateProfile changes the civilization's icon and/or description. Founder only.
func (s *Service) UpdateProfile(ctx context.Context, actor id.PlayerID, civID id.CivilizationID, icon, description *string) (*models.Civilization, error) {
	civ, err := s.civs.Execute(ctx, civID,
		func(c *models.Civilization) error {
			if actor != c.FounderID && !actor.IsSystem() {
				return dErrors.New(dErrors.CodeForbidden, "only the founder may edit the civilization")
			}
			if description != nil && len(*description) > 500 {
				return dErrors.New(dErrors.CodeValidation, "description must be at most 500 characters")
			}
			return nil
		},
		func(c *models.Civilization) {
			if icon != nil {
				c.Icon = *icon
			}
			if description != nil {
				c.Description = *description
			}
		})
	if err != nil {
		return nil, wrapCivErr(err)
	}
	return civ, nil
}

// RemoveReligion drops a religion from the civilization. The actor must be
// the civilization founder (kick) or the religion's own founder (leave).
// Dropping below the minimum leaves the civilization provisional.
func (s *Service) RemoveReligion(ctx context.Context, actor id.PlayerID, civID id.CivilizationID, religionID id.ReligionID) error {
	religionFounder, err := s.religions.FounderOf(ctx, religionID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return err
	}

	_, err = s.civs.Execute(ctx, civID,
		func(c *models.Civilization) error {
			if actor != c.FounderID && actor != religionFounder && !actor.IsSystem() {
				return dErrors.New(dErrors.CodeForbidden, "not authorized to remove this religion")
			}
			if religionID == c.FounderReligionID {
				return dErrors.New(dErrors.CodeConflict, "the founding religion cannot leave; disband instead")
			}
			if !c.HasReligion(religionID) {
				return dErrors.New(dErrors.CodeNotFound, "religion is not a member of this civilization")
			}
			return nil
		},
		func(c *models.Civilization) {
			_ = c.RemoveReligion(religionID)
		})
	if err != nil {
		return wrapCivErr(err)
	}
	s.refreshTotalMembers(ctx, civID)

	s.logger.InfoContext(ctx, "religion left civilization",
		"civilization_id", civID, "religion_id", religionID, "actor", actor)
	s.bus.Publish(ctx, events.Event{
		Kind:           events.KindReligionLeftCivilization,
		ActorID:        actor,
		ReligionID:     religionID,
		CivilizationID: civID,
	})
	return nil
}

// Disband destroys the civilization. Founder only. Outstanding invites are
// removed with the aggregate; diplomacy and milestone state listen for the
// disband event and clean up their own records.
func (s *Service) Disband(ctx context.Context, actor id.PlayerID, civID id.CivilizationID) error {
	civ, err := s.civs.FindByID(ctx, civID)
	if err != nil {
		return wrapCivErr(err)
	}
	if actor != civ.FounderID && !actor.IsSystem() {
		return dErrors.New(dErrors.CodeForbidden, "only the founder may disband a civilization")
	}

	deleted, err := s.civs.Delete(ctx, civID)
	if err != nil {
		return wrapCivErr(err)
	}

	if s.metrics != nil {
		s.metrics.IncrementDisbanded()
	}
	s.logger.InfoContext(ctx, "civilization disbanded", "civilization_id", civID, "actor", actor)
	s.bus.Publish(ctx, events.Event{
		Kind:           events.KindCivilizationDisbanded,
		ActorID:        actor,
		CivilizationID: deleted.ID,
	})
	return nil
}

// FounderOf answers founder-identity queries for the diplomacy module.
func (s *Service) FounderOf(ctx context.Context, civID id.CivilizationID) (id.PlayerID, error) {
	civ, err := s.GetCivilization(ctx, civID)
	if err != nil {
		return "", err
	}
	return civ.FounderID, nil
}

// MembersOf answers member-religion queries for the milestone module.
func (s *Service) MembersOf(ctx context.Context, civID id.CivilizationID) ([]id.ReligionID, error) {
	civ, err := s.GetCivilization(ctx, civID)
	if err != nil {
		return nil, err
	}
	return civ.Religions, nil
}

// FounderReligionOf answers founding-religion queries for milestone payouts.
func (s *Service) FounderReligionOf(ctx context.Context, civID id.CivilizationID) (id.ReligionID, error) {
	civ, err := s.GetCivilization(ctx, civID)
	if err != nil {
		return id.ReligionID{}, err
	}
	return civ.FounderReligionID, nil
}

// HandleReligionDeleted reacts to religion deletion: the religion's
// membership and outstanding invites are cleaned up. If the deleted religion
// founded its civilization, the civilization is disbanded on its behalf.
func (s *Service) HandleReligionDeleted(ctx context.Context, event events.Event) {
	if event.Kind != events.KindReligionDeleted {
		return
	}
	s.civs.DeleteInvitesForReligion(ctx, event.ReligionID)

	civ, err := s.civs.FindByReligion(ctx, event.ReligionID)
	if err != nil {
		return
	}
	if civ.FounderReligionID == event.ReligionID {
		if err := s.Disband(ctx, id.SystemActor, civ.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to disband civilization after founder religion deletion",
				"civilization_id", civ.ID, "error", err.Error())
		}
		return
	}
	if err := s.RemoveReligion(ctx, id.SystemActor, civ.ID, event.ReligionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to detach deleted religion from civilization",
			"civilization_id", civ.ID, "religion_id", event.ReligionID, "error", err.Error())
	}
}

// requireFounder verifies the actor founded the religion.
func (s *Service) requireFounder(ctx context.Context, actor id.PlayerID, religionID id.ReligionID) error {
	if actor.IsSystem() {
		return nil
	}
	founder, err := s.religions.FounderOf(ctx, religionID)
	if err != nil {
		return err
	}
	if actor != founder {
		return dErrors.New(dErrors.CodeForbidden, "only the religion founder may act for it")
	}
	return nil
}

// refreshTotalMembers recomputes the cached member total across member
// religions. Best effort; the cache is advisory.
func (s *Service) refreshTotalMembers(ctx context.Context, civID id.CivilizationID) {
	civ, err := s.civs.FindByID(ctx, civID)
	if err != nil {
		return
	}
	total := 0
	for _, religionID := range civ.Religions {
		count, err := s.religions.MemberCountOf(ctx, religionID)
		if err != nil {
			continue
		}
		total += count
	}
	_, _ = s.civs.Execute(ctx, civID, nil, func(c *models.Civilization) {
		c.TotalMembers = total
	})
}

// wrapCivErr translates store sentinels into coded domain errors.
func wrapCivErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "civilization not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "civilization state conflict")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "civilization store failure")
	}
}
