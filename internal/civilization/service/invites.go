package service

import (
	"context"
	"errors"

	"pantheon/internal/civilization/models"
	"pantheon/internal/events"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/platform/sentinel"
	"pantheon/pkg/requestcontext"
)

// InviteReligion sends a time-limited invite to a religion. The actor must be
// the civilization founder, and the civilization must have room.
func (s *Service) InviteReligion(ctx context.Context, actor id.PlayerID, civID id.CivilizationID, religionID id.ReligionID) (*models.Invite, error) {
	civ, err := s.GetCivilization(ctx, civID)
	if err != nil {
		return nil, err
	}
	if actor != civ.FounderID && !actor.IsSystem() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the founder may invite religions")
	}
	if civ.HasReligion(religionID) {
		return nil, dErrors.New(dErrors.CodeConflict, "religion is already a member of this civilization")
	}
	if len(civ.Religions) >= models.MaxReligions {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "civilization is at maximum size")
	}
	if _, err := s.religions.FounderOf(ctx, religionID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	invite := &models.Invite{
		ID:             id.NewInviteID(),
		CivilizationID: civID,
		ReligionID:     religionID,
		InvitedBy:      actor,
		SentAt:         now,
		ExpiresAt:      now.Add(s.inviteTTL),
	}
	if err := s.civs.PutInvite(ctx, invite, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an invite for this religion is already pending")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record invite")
	}

	if s.metrics != nil {
		s.metrics.IncrementInvitesSent()
	}
	s.logger.InfoContext(ctx, "civilization invite sent",
		"civilization_id", civID, "religion_id", religionID, "expires_at", invite.ExpiresAt)
	return invite, nil
}

// ListInvites returns the pending invites targeting a religion.
func (s *Service) ListInvites(ctx context.Context, religionID id.ReligionID) ([]*models.Invite, error) {
	return s.civs.ListInvitesFor(ctx, religionID)
}

// AcceptInvite consumes a valid invite and joins the religion to the
// civilization. The actor must be the invited religion's founder.
func (s *Service) AcceptInvite(ctx context.Context, actor id.PlayerID, inviteID id.InviteID) (*models.Civilization, error) {
	invite, err := s.civs.FindInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "invite not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invite")
	}

	now := requestcontext.Now(ctx)
	if !invite.Valid(now) {
		_, _ = s.civs.DeleteInvite(ctx, inviteID)
		return nil, dErrors.New(dErrors.CodeConflict, "invite has expired")
	}
	if err := s.requireFounder(ctx, actor, invite.ReligionID); err != nil {
		return nil, err
	}

	// Accepting implicitly leaves the current civilization. A founding
	// religion sitting alone in a provisional shell disbands it; one with
	// co-members must disband explicitly first.
	if current, err := s.civs.FindByReligion(ctx, invite.ReligionID); err == nil {
		switch {
		case current.ID == invite.CivilizationID:
			return nil, dErrors.New(dErrors.CodeConflict, "religion is already a member of this civilization")
		case current.FounderReligionID != invite.ReligionID:
			if err := s.RemoveReligion(ctx, actor, current.ID, invite.ReligionID); err != nil {
				return nil, err
			}
		case len(current.Religions) == 1:
			if err := s.Disband(ctx, actor, current.ID); err != nil {
				return nil, err
			}
		default:
			return nil, dErrors.New(dErrors.CodeConflict, "founding religion must disband its civilization before joining another")
		}
	}

	civ, err := s.civs.AddReligionIfFree(ctx, invite.CivilizationID, invite.ReligionID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "civilization no longer exists")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "religion already belongs to a civilization")
		default:
			return nil, wrapCivErr(err)
		}
	}
	// The invite is spent; any other pending invites for this religion are
	// void now that it belongs to a civilization.
	s.civs.DeleteInvitesForReligion(ctx, invite.ReligionID)
	s.refreshTotalMembers(ctx, civ.ID)

	if s.metrics != nil {
		s.metrics.IncrementInvitesAccepted()
	}
	s.logger.InfoContext(ctx, "religion joined civilization",
		"civilization_id", civ.ID, "religion_id", invite.ReligionID, "actor", actor)
	s.bus.Publish(ctx, events.Event{
		Kind:           events.KindReligionJoinedCivilization,
		ActorID:        actor,
		ReligionID:     invite.ReligionID,
		CivilizationID: civ.ID,
	})
	return civ, nil
}

// DeclineInvite removes the invite without joining. The actor must be the
// invited religion's founder.
func (s *Service) DeclineInvite(ctx context.Context, actor id.PlayerID, inviteID id.InviteID) error {
	invite, err := s.civs.FindInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "invite not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invite")
	}
	if err := s.requireFounder(ctx, actor, invite.ReligionID); err != nil {
		return err
	}
	if _, err := s.civs.DeleteInvite(ctx, inviteID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove invite")
	}
	return nil
}

// SweepExpiredInvites purges invites past their expiry. Called from the
// periodic sweeper.
func (s *Service) SweepExpiredInvites(ctx context.Context) int {
	removed := s.civs.SweepExpiredInvites(ctx, requestcontext.Now(ctx))
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired civilization invites swept", "count", removed)
	}
	return removed
}
