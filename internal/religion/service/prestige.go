package service

import (
	"context"

	"pantheon/internal/religion/models"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// AddPrestige credits prestige from a reward collaborator. Amounts <= 0 are
// no-ops. Returns the updated snapshot.
func (s *Service) AddPrestige(ctx context.Context, religionID id.ReligionID, amount int64) (*models.Religion, error) {
	now := requestcontext.Now(ctx)
	rankRose := false
	religion, err := s.religions.Execute(ctx, religionID, nil, func(r *models.Religion) {
		rankRose = r.AddPrestige(amount, now)
	})
	if err != nil {
		return nil, wrapReligionErr(err)
	}

	if amount > 0 {
		s.observePrestige(amount)
	}
	if rankRose {
		s.logger.InfoContext(ctx, "religion rank rose",
			"religion_id", religionID, "rank", religion.Rank().String())
	}
	return religion, nil
}

// RemovePrestige debits spendable prestige, e.g. for blessing purchases.
// Fails without mutation when the balance is insufficient; rank never
// changes on removal.
func (s *Service) RemovePrestige(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, amount int64) (*models.Religion, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	now := requestcontext.Now(ctx)
	religion, err := s.religions.Execute(ctx, religionID,
		func(r *models.Religion) error {
			if !r.HasPermission(actor, models.PermSpendPrestige) {
				return dErrors.New(dErrors.CodeForbidden, "you lack permission to spend prestige")
			}
			if amount > r.Prestige {
				return dErrors.New(dErrors.CodeConflict, "insufficient prestige")
			}
			return nil
		},
		func(r *models.Religion) {
			r.RemovePrestige(amount, now)
		},
	)
	if err != nil {
		return nil, wrapReligionErr(err)
	}
	return religion, nil
}

// AddFractionalPrestige accumulates sub-unit rewards, paying out whole
// units through the integer path so fractional grants conserve their sum.
func (s *Service) AddFractionalPrestige(ctx context.Context, religionID id.ReligionID, amount float64) (int64, error) {
	now := requestcontext.Now(ctx)
	var awarded int64
	_, err := s.religions.Execute(ctx, religionID, nil, func(r *models.Religion) {
		awarded, _ = r.AddFractionalPrestige(amount, now)
	})
	if err != nil {
		return 0, wrapReligionErr(err)
	}
	if awarded > 0 {
		s.observePrestige(awarded)
	}
	return awarded, nil
}

// UnlockBlessing records a blessing unlock granted by a reward collaborator
// or a milestone benefit.
func (s *Service) UnlockBlessing(ctx context.Context, religionID id.ReligionID, blessingID string) error {
	if blessingID == "" {
		return dErrors.New(dErrors.CodeValidation, "blessing id is required")
	}
	now := requestcontext.Now(ctx)
	_, err := s.religions.Execute(ctx, religionID, nil, func(r *models.Religion) {
		if r.UnlockBlessing(blessingID, now) {
			r.AppendActivity(models.ActivityEntry{
				ActorID: id.SystemActor, Action: "blessing unlocked", Detail: blessingID, At: now,
			}, s.activityCap)
		}
	})
	if err != nil {
		return wrapReligionErr(err)
	}
	return nil
}

// GrantPrestige awards prestige on behalf of the system, discarding the
// snapshot. Used by milestone payouts.
func (s *Service) GrantPrestige(ctx context.Context, religionID id.ReligionID, amount int64) error {
	_, err := s.AddPrestige(ctx, religionID, amount)
	return err
}

// ActivityLog returns a snapshot of the newest-first activity log.
func (s *Service) ActivityLog(ctx context.Context, religionID id.ReligionID) ([]models.ActivityEntry, error) {
	religion, err := s.religions.FindByID(ctx, religionID)
	if err != nil {
		return nil, wrapReligionErr(err)
	}
	return religion.Activity, nil
}

func (s *Service) observePrestige(amount int64) {
	if s.metrics != nil {
		s.metrics.ObservePrestigeAwarded(amount)
	}
}
