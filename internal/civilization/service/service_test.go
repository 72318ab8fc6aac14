package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantheon/internal/civilization/models"
	"pantheon/internal/civilization/store"
	"pantheon/internal/events"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// fakeDirectory answers founder and member-count queries from a fixed map.
type fakeDirectory struct {
	founders map[id.ReligionID]id.PlayerID
	counts   map[id.ReligionID]int
}

func (d *fakeDirectory) FounderOf(_ context.Context, religionID id.ReligionID) (id.PlayerID, error) {
	founder, ok := d.founders[religionID]
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "religion not found")
	}
	return founder, nil
}

func (d *fakeDirectory) MemberCountOf(_ context.Context, religionID id.ReligionID) (int, error) {
	count, ok := d.counts[religionID]
	if !ok {
		return 0, dErrors.New(dErrors.CodeNotFound, "religion not found")
	}
	return count, nil
}

type fixture struct {
	svc       *Service
	bus       *events.Bus
	dir       *fakeDirectory
	ctx       context.Context
	religionA id.ReligionID
	religionB id.ReligionID
	religionC id.ReligionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := &fakeDirectory{
		founders: make(map[id.ReligionID]id.PlayerID),
		counts:   make(map[id.ReligionID]int),
	}
	a, b, c := id.NewReligionID(), id.NewReligionID(), id.NewReligionID()
	dir.founders[a], dir.counts[a] = "founderA", 5
	dir.founders[b], dir.counts[b] = "founderB", 3
	dir.founders[c], dir.counts[c] = "founderC", 2

	bus := events.NewBus()
	return &fixture{
		svc: New(store.NewInMemory(), dir, bus),
		bus: bus, dir: dir,
		ctx:       requestcontext.WithTime(context.Background(), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)),
		religionA: a, religionB: b, religionC: c,
	}
}

func (f *fixture) establish(t *testing.T) *models.Civilization {
	t.Helper()
	civ, err := f.svc.CreateCivilization(f.ctx, "founderA", "Dawn Concord", f.religionA)
	require.NoError(t, err)
	invite, err := f.svc.InviteReligion(f.ctx, "founderA", civ.ID, f.religionB)
	require.NoError(t, err)
	joined, err := f.svc.AcceptInvite(f.ctx, "founderB", invite.ID)
	require.NoError(t, err)
	return joined
}

func TestCreateCivilization(t *testing.T) {
	f := newFixture(t)

	t.Run("only the religion founder may create", func(t *testing.T) {
		_, err := f.svc.CreateCivilization(f.ctx, "stranger", "Dawn Concord", f.religionA)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("starts provisional with cached member total", func(t *testing.T) {
		civ, err := f.svc.CreateCivilization(f.ctx, "founderA", "Dawn Concord", f.religionA)
		require.NoError(t, err)
		assert.False(t, civ.IsEstablished())

		fresh, err := f.svc.GetCivilization(f.ctx, civ.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, fresh.TotalMembers)
	})

	t.Run("founding religion cannot found a second civilization", func(t *testing.T) {
		_, err := f.svc.CreateCivilization(f.ctx, "founderA", "Second Concord", f.religionA)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestInviteFlow(t *testing.T) {
	f := newFixture(t)
	civ, err := f.svc.CreateCivilization(f.ctx, "founderA", "Dawn Concord", f.religionA)
	require.NoError(t, err)

	t.Run("invite carries the seven day expiry", func(t *testing.T) {
		invite, err := f.svc.InviteReligion(f.ctx, "founderA", civ.ID, f.religionB)
		require.NoError(t, err)
		assert.Equal(t, invite.SentAt.Add(7*24*time.Hour), invite.ExpiresAt)

		require.NoError(t, f.svc.DeclineInvite(f.ctx, "founderB", invite.ID))
	})

	t.Run("only the invited founder may accept", func(t *testing.T) {
		invite, err := f.svc.InviteReligion(f.ctx, "founderA", civ.ID, f.religionB)
		require.NoError(t, err)
		_, err = f.svc.AcceptInvite(f.ctx, "founderC", invite.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

		require.NoError(t, f.svc.DeclineInvite(f.ctx, "founderB", invite.ID))
	})

	t.Run("expired invite cannot be accepted", func(t *testing.T) {
		invite, err := f.svc.InviteReligion(f.ctx, "founderA", civ.ID, f.religionB)
		require.NoError(t, err)

		later := requestcontext.WithTime(context.Background(),
			time.Date(2026, 8, 9, 12, 0, 0, 0, time.UTC))
		_, err = f.svc.AcceptInvite(later, "founderB", invite.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("accept joins and publishes the join event", func(t *testing.T) {
		var got []events.Event
		f.bus.Subscribe(func(_ context.Context, e events.Event) { got = append(got, e) })

		invite, err := f.svc.InviteReligion(f.ctx, "founderA", civ.ID, f.religionB)
		require.NoError(t, err)
		joined, err := f.svc.AcceptInvite(f.ctx, "founderB", invite.ID)
		require.NoError(t, err)

		assert.True(t, joined.IsEstablished())
		assert.Equal(t, 8, mustGet(t, f, civ.ID).TotalMembers)
		require.Len(t, got, 1)
		assert.Equal(t, events.KindReligionJoinedCivilization, got[0].Kind)
	})
}

func TestAcceptInviteMovesReligion(t *testing.T) {
	t.Run("lone founding religion disbands its shell and moves", func(t *testing.T) {
		f := newFixture(t)
		civA, err := f.svc.CreateCivilization(f.ctx, "founderA", "Dawn Concord", f.religionA)
		require.NoError(t, err)
		shell, err := f.svc.CreateCivilization(f.ctx, "founderB", "Lone Pact", f.religionB)
		require.NoError(t, err)

		invite, err := f.svc.InviteReligion(f.ctx, "founderA", civA.ID, f.religionB)
		require.NoError(t, err)
		joined, err := f.svc.AcceptInvite(f.ctx, "founderB", invite.ID)
		require.NoError(t, err)

		assert.True(t, joined.HasReligion(f.religionB))
		_, err = f.svc.GetCivilization(f.ctx, shell.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("member religion detaches from its old civilization", func(t *testing.T) {
		f := newFixture(t)
		civA := f.establish(t)
		civC, err := f.svc.CreateCivilization(f.ctx, "founderC", "Moon Pact", f.religionC)
		require.NoError(t, err)

		invite, err := f.svc.InviteReligion(f.ctx, "founderC", civC.ID, f.religionB)
		require.NoError(t, err)
		joined, err := f.svc.AcceptInvite(f.ctx, "founderB", invite.ID)
		require.NoError(t, err)

		assert.True(t, joined.HasReligion(f.religionB))
		assert.False(t, mustGet(t, f, civA.ID).HasReligion(f.religionB))
	})

	t.Run("founding religion with co-members cannot move", func(t *testing.T) {
		f := newFixture(t)
		f.establish(t)
		civC, err := f.svc.CreateCivilization(f.ctx, "founderC", "Moon Pact", f.religionC)
		require.NoError(t, err)

		invite, err := f.svc.InviteReligion(f.ctx, "founderC", civC.ID, f.religionA)
		require.NoError(t, err)
		_, err = f.svc.AcceptInvite(f.ctx, "founderA", invite.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestRemoveReligion(t *testing.T) {
	f := newFixture(t)
	civ := f.establish(t)

	t.Run("unrelated founder cannot remove", func(t *testing.T) {
		err := f.svc.RemoveReligion(f.ctx, "founderC", civ.ID, f.religionB)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("founding religion cannot leave", func(t *testing.T) {
		err := f.svc.RemoveReligion(f.ctx, "founderA", civ.ID, f.religionA)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("leaving drops to provisional without disbanding", func(t *testing.T) {
		require.NoError(t, f.svc.RemoveReligion(f.ctx, "founderB", civ.ID, f.religionB))
		fresh := mustGet(t, f, civ.ID)
		assert.False(t, fresh.IsEstablished())
		assert.Nil(t, fresh.DisbandedAt)
	})

	t.Run("departed religion can be invited elsewhere", func(t *testing.T) {
		other, err := f.svc.CreateCivilization(f.ctx, "founderC", "Moon Pact", f.religionC)
		require.NoError(t, err)
		invite, err := f.svc.InviteReligion(f.ctx, "founderC", other.ID, f.religionB)
		require.NoError(t, err)
		_, err = f.svc.AcceptInvite(f.ctx, "founderB", invite.ID)
		require.NoError(t, err)
	})
}

func TestDisband(t *testing.T) {
	f := newFixture(t)
	civ := f.establish(t)

	var got []events.Event
	f.bus.Subscribe(func(_ context.Context, e events.Event) { got = append(got, e) })

	t.Run("non-founder cannot disband", func(t *testing.T) {
		err := f.svc.Disband(f.ctx, "founderB", civ.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("founder disband publishes the cascade event", func(t *testing.T) {
		require.NoError(t, f.svc.Disband(f.ctx, "founderA", civ.ID))
		require.Len(t, got, 1)
		assert.Equal(t, events.KindCivilizationDisbanded, got[0].Kind)
		assert.Equal(t, civ.ID, got[0].CivilizationID)

		_, err := f.svc.GetCivilization(f.ctx, civ.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestHandleReligionDeleted(t *testing.T) {
	t.Run("member religion is detached", func(t *testing.T) {
		f := newFixture(t)
		civ := f.establish(t)

		f.svc.HandleReligionDeleted(f.ctx, events.Event{
			Kind: events.KindReligionDeleted, ReligionID: f.religionB,
		})
		fresh := mustGet(t, f, civ.ID)
		assert.False(t, fresh.HasReligion(f.religionB))
	})

	t.Run("founding religion deletion disbands the civilization", func(t *testing.T) {
		f := newFixture(t)
		civ := f.establish(t)

		f.svc.HandleReligionDeleted(f.ctx, events.Event{
			Kind: events.KindReligionDeleted, ReligionID: f.religionA,
		})
		_, err := f.svc.GetCivilization(f.ctx, civ.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func mustGet(t *testing.T, f *fixture, civID id.CivilizationID) *models.Civilization {
	t.Helper()
	civ, err := f.svc.GetCivilization(f.ctx, civID)
	require.NoError(t, err)
	return civ
}
