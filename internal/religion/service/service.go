// Package service orchestrates the religion aggregate: membership, roles,
// bans, prestige, and blessings. Every mutating method takes the acting
// player explicitly and publishes domain events only after the aggregate
// lock has been released by the store call.
package service

import (
	"context"
	"errors"
	"log/slog"

	"pantheon/internal/events"
	"pantheon/internal/presence"
	religionmetrics "pantheon/internal/religion/metrics"
	"pantheon/internal/religion/models"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/platform/sentinel"
	"pantheon/pkg/requestcontext"
)

// ReligionStore is the aggregate store contract the service depends on.
type ReligionStore interface {
	CreateIfAvailable(ctx context.Context, religion *models.Religion) error
	FindByID(ctx context.Context, religionID id.ReligionID) (*models.Religion, error)
	FindByMember(ctx context.Context, player id.PlayerID) (*models.Religion, error)
	List(ctx context.Context) ([]*models.Religion, error)
	Execute(ctx context.Context, religionID id.ReligionID, validate func(r *models.Religion) error, mutate func(r *models.Religion)) (*models.Religion, error)
	Delete(ctx context.Context, religionID id.ReligionID) (*models.Religion, error)
}

// EventPublisher publishes domain events after mutations commit.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service orchestrates religion lifecycle and membership.
type Service struct {
	religions   ReligionStore
	bus         EventPublisher
	logger      *slog.Logger
	metrics     *religionmetrics.Metrics
	presence    presence.Resolver
	activityCap int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger injects the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics injects the religion metrics.
func WithMetrics(m *religionmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPresence injects the identity resolver used for cached display names.
func WithPresence(r presence.Resolver) Option {
	return func(s *Service) { s.presence = r }
}

// WithActivityCap overrides the bounded activity log size.
func WithActivityCap(cap int) Option {
	return func(s *Service) { s.activityCap = cap }
}

// New constructs a Service.
func New(religions ReligionStore, bus EventPublisher, opts ...Option) *Service {
	s := &Service{
		religions:   religions,
		bus:         bus,
		logger:      slog.Default(),
		activityCap: models.DefaultActivityCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReligion founds a new religion with the actor as sole member.
func (s *Service) CreateReligion(ctx context.Context, actor id.PlayerID, name, domainLabel string) (*models.Religion, error) {
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "acting player is required")
	}
	domain, err := models.ParseDomain(domainLabel)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	religion, err := models.NewReligion(id.NewReligionID(), name, domain, actor, s.displayName(ctx, actor), now)
	if err != nil {
		return nil, err
	}
	religion.AppendActivity(models.ActivityEntry{
		ActorID: actor, ActorName: religion.MemberNames[actor],
		Action: "founded", At: now,
	}, s.activityCap)

	if err := s.religions.CreateIfAvailable(ctx, religion); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "religion name must be unique")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "you already belong to a religion")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create religion")
		}
	}

	s.incrementCreated()
	s.logger.InfoContext(ctx, "religion founded",
		"religion_id", religion.ID, "founder", actor, "domain", domain)
	return religion, nil
}

// GetReligion returns a snapshot of the religion.
func (s *Service) GetReligion(ctx context.Context, religionID id.ReligionID) (*models.Religion, error) {
	religion, err := s.religions.FindByID(ctx, religionID)
	if err != nil {
		return nil, wrapReligionErr(err)
	}
	return religion, nil
}

// GetReligionOf returns the religion the player belongs to, if any.
func (s *Service) GetReligionOf(ctx context.Context, player id.PlayerID) (*models.Religion, error) {
	religion, err := s.religions.FindByMember(ctx, player)
	if err != nil {
		return nil, wrapReligionErr(err)
	}
	return religion, nil
}

// ListReligions returns snapshots of every religion.
func (s *Service) ListReligions(ctx context.Context) ([]*models.Religion, error) {
	return s.religions.List(ctx)
}

// DeleteReligion destroys the religion and cascade-notifies dependents via
// the event bus. Founder only.
func (s *Service) DeleteReligion(ctx context.Context, actor id.PlayerID, religionID id.ReligionID) error {
	religion, err := s.religions.FindByID(ctx, religionID)
	if err != nil {
		return wrapReligionErr(err)
	}
	if actor != religion.FounderID && !actor.IsSystem() {
		return dErrors.New(dErrors.CodeForbidden, "only the founder may delete a religion")
	}

	deleted, err := s.religions.Delete(ctx, religionID)
	if err != nil {
		return wrapReligionErr(err)
	}

	s.incrementDeleted()
	s.logger.InfoContext(ctx, "religion deleted", "religion_id", religionID, "actor", actor)
	s.bus.Publish(ctx, events.Event{
		Kind:       events.KindReligionDeleted,
		Timestamp:  requestcontext.Now(ctx),
		ActorID:    actor,
		ReligionID: deleted.ID,
	})
	return nil
}

// FounderOf answers founder-identity queries for other modules.
func (s *Service) FounderOf(ctx context.Context, religionID id.ReligionID) (id.PlayerID, error) {
	religion, err := s.GetReligion(ctx, religionID)
	if err != nil {
		return "", err
	}
	return religion.FounderID, nil
}

// DomainOf answers deity-domain queries for other modules.
func (s *Service) DomainOf(ctx context.Context, religionID id.ReligionID) (string, error) {
	religion, err := s.GetReligion(ctx, religionID)
	if err != nil {
		return "", err
	}
	return string(religion.Domain), nil
}

// MemberCountOf answers member-count queries for other modules.
func (s *Service) MemberCountOf(ctx context.Context, religionID id.ReligionID) (int, error) {
	religion, err := s.GetReligion(ctx, religionID)
	if err != nil {
		return 0, err
	}
	return religion.MemberCount(), nil
}

func (s *Service) displayName(ctx context.Context, player id.PlayerID) string {
	if s.presence == nil {
		return string(player)
	}
	return s.presence.DisplayName(ctx, player)
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementReligionsCreated()
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.IncrementReligionsDeleted()
	}
}

// wrapReligionErr translates store sentinels into coded domain errors.
func wrapReligionErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "religion not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "religion state conflict")
	default:
		if dErrors.HasCode(err, dErrors.CodeInternal) || !isCoded(err) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "religion store failure")
		}
		return err
	}
}

func isCoded(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}
