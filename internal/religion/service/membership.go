package service

import (
	"context"
	"errors"
	"time"

	"pantheon/internal/religion/models"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/platform/sentinel"
	"pantheon/pkg/requestcontext"
)

// Join adds the actor to the religion with the default member role. The
// one-religion-per-player rule is enforced here before touching the target
// aggregate.
func (s *Service) Join(ctx context.Context, actor id.PlayerID, religionID id.ReligionID) (*models.Religion, error) {
	if actor == "" || actor.IsSystem() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "acting player is required")
	}
	if _, err := s.religions.FindByMember(ctx, actor); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "you already belong to a religion")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapReligionErr(err)
	}

	now := requestcontext.Now(ctx)
	name := s.displayName(ctx, actor)
	religion, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if r.IsBanned(actor, now) {
				return dErrors.New(dErrors.CodeForbidden, "you are banned from this religion")
			}
			if r.IsMember(actor) {
				return dErrors.New(dErrors.CodeConflict, "you are already a member")
			}
			return nil
		},
		func(r *models.Religion) {
			// Validation ran under the same lock, so this cannot fail.
			_ = r.AddMember(actor, name, now)
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, ActorName: name, Action: "joined", At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return nil, wrapReligionErr(err)
	}

	s.logger.InfoContext(ctx, "player joined religion", "religion_id", religionID, "player", actor)
	return religion, nil
}

// Leave removes the actor from their religion. The founder must transfer
// the founder role or delete the religion instead.
func (s *Service) Leave(ctx context.Context, actor id.PlayerID, religionID id.ReligionID) error {
	now := requestcontext.Now(ctx)
	name := s.displayName(ctx, actor)
	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.IsMember(actor) {
				return dErrors.New(dErrors.CodeNotFound, "you are not a member of this religion")
			}
			if actor == r.FounderID {
				return dErrors.New(dErrors.CodeConflict, "the founder must transfer leadership before leaving")
			}
			return nil
		},
		func(r *models.Religion) {
			_ = r.RemoveMember(actor, now)
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, ActorName: name, Action: "left", At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// Kick removes a member. Requires the kick permission; role hierarchy is
// flat beyond that, except the founder who can never be kicked.
func (s *Service) Kick(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID) error {
	now := requestcontext.Now(ctx)
	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermKickMembers) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to kick members")
			}
			if target == r.FounderID {
				return dErrors.New(dErrors.CodeConflict, "the founder cannot be kicked")
			}
			if !r.IsMember(target) {
				return dErrors.New(dErrors.CodeNotFound, "target is not a member")
			}
			return nil
		},
		func(r *models.Religion) {
			_ = r.RemoveMember(target, now)
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "kicked", Detail: string(target), At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// BanMember bans a player, removing them first if they are a member. A nil
// duration bans permanently.
func (s *Service) BanMember(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID, reason string, duration *time.Duration) error {
	now := requestcontext.Now(ctx)
	var expiresAt *time.Time
	if duration != nil {
		if *duration <= 0 {
			return dErrors.New(dErrors.CodeValidation, "ban duration must be positive")
		}
		expiry := now.Add(*duration)
		expiresAt = &expiry
	}

	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermBanMembers) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to ban members")
			}
			if target == r.FounderID {
				return dErrors.New(dErrors.CodeConflict, "the founder cannot be banned")
			}
			if r.IsBanned(target, now) {
				return dErrors.New(dErrors.CodeConflict, "target is already banned")
			}
			return nil
		},
		func(r *models.Religion) {
			_ = r.Ban(target, reason, expiresAt, now)
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "banned", Detail: string(target), At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// UnbanMember lifts a ban.
func (s *Service) UnbanMember(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID) error {
	now := requestcontext.Now(ctx)
	_, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermBanMembers) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to manage bans")
			}
			if _, banned := r.Bans[target]; !banned {
				return dErrors.New(dErrors.CodeNotFound, "target is not banned")
			}
			return nil
		},
		func(r *models.Religion) {
			_ = r.Unban(target, now)
			r.AppendActivity(models.ActivityEntry{
				ActorID: actor, Action: "unbanned", Detail: string(target), At: now,
			}, s.activityCap)
		},
	)
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// SweepExpiredBans purges lapsed bans across all religions. Called by the
// periodic sweeper; each aggregate is locked per item, never globally.
func (s *Service) SweepExpiredBans(ctx context.Context) int {
	religions, err := s.religions.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list religions for ban sweep", "error", err)
		return 0
	}

	now := requestcontext.Now(ctx)
	total := 0
	for _, snapshot := range religions {
		_, err := s.religions.Execute(ctx, snapshot.ID, nil, func(r *models.Religion) {
			total += r.SweepExpiredBans(now)
		})
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "sweep bans", "religion_id", snapshot.ID, "error", err)
		}
	}
	return total
}
