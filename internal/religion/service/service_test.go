package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantheon/internal/events"
	"pantheon/internal/religion/models"
	"pantheon/internal/religion/store"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	return New(store.NewInMemory(), bus), bus
}

func fixedCtx(t *testing.T) context.Context {
	t.Helper()
	return requestcontext.WithTime(context.Background(), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
}

func TestCreateReligion(t *testing.T) {
	ctx := fixedCtx(t)
	svc, _ := newTestService(t)

	t.Run("founds with founder as sole member", func(t *testing.T) {
		religion, err := svc.CreateReligion(ctx, "f1", "Order of Dawn", "sun")
		require.NoError(t, err)
		assert.Equal(t, id.PlayerID("f1"), religion.FounderID)
		assert.Equal(t, 1, religion.MemberCount())
		assert.Equal(t, "founded", religion.Activity[0].Action)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		_, err := svc.CreateReligion(ctx, "f2", "ORDER OF DAWN", "moon")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects founder already in a religion", func(t *testing.T) {
		_, err := svc.CreateReligion(ctx, "f1", "Second Order", "moon")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects unknown domain", func(t *testing.T) {
		_, err := svc.CreateReligion(ctx, "f3", "Chaos Cult", "chaos")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestJoinAndLeave(t *testing.T) {
	ctx := fixedCtx(t)
	svc, _ := newTestService(t)
	religion, err := svc.CreateReligion(ctx, "f1", "Order of Dawn", "sun")
	require.NoError(t, err)

	t.Run("join assigns the default member role", func(t *testing.T) {
		updated, err := svc.Join(ctx, "p2", religion.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, updated.MemberRoles["p2"])
	})

	t.Run("joining a second religion fails", func(t *testing.T) {
		other, err := svc.CreateReligion(ctx, "f9", "Moon Court", "moon")
		require.NoError(t, err)
		_, err = svc.Join(ctx, "p2", other.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("founder cannot leave", func(t *testing.T) {
		err := svc.Leave(ctx, "f1", religion.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("member can leave and rejoin elsewhere", func(t *testing.T) {
		require.NoError(t, svc.Leave(ctx, "p2", religion.ID))
		_, err := svc.GetReligionOf(ctx, "p2")
		require.Error(t, err)
	})
}

func TestKickAndBan(t *testing.T) {
	ctx := fixedCtx(t)
	svc, _ := newTestService(t)
	religion, err := svc.CreateReligion(ctx, "f1", "Order of Dawn", "sun")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "p2", religion.ID)
	require.NoError(t, err)

	t.Run("plain member cannot kick", func(t *testing.T) {
		_, err := svc.Join(ctx, "p3", religion.ID)
		require.NoError(t, err)
		err = svc.Kick(ctx, "p2", religion.ID, "p3")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("founder can kick", func(t *testing.T) {
		require.NoError(t, svc.Kick(ctx, "f1", religion.ID, "p3"))
	})

	t.Run("ban removes membership and blocks rejoin", func(t *testing.T) {
		require.NoError(t, svc.BanMember(ctx, "f1", religion.ID, "p2", "griefing", nil))
		updated, err := svc.GetReligion(ctx, religion.ID)
		require.NoError(t, err)
		assert.False(t, updated.IsMember("p2"))

		_, err = svc.Join(ctx, "p2", religion.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("temporary ban expires transparently", func(t *testing.T) {
		dur := time.Hour
		require.NoError(t, svc.BanMember(ctx, "f1", religion.ID, "p4", "spam", &dur))

		later := requestcontext.WithTime(context.Background(),
			time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC))
		_, err := svc.Join(later, "p4", religion.ID)
		require.NoError(t, err)
	})

	t.Run("unban lifts a permanent ban", func(t *testing.T) {
		require.NoError(t, svc.UnbanMember(ctx, "f1", religion.ID, "p2"))
		_, err := svc.Join(ctx, "p2", religion.ID)
		require.NoError(t, err)
	})
}

func TestDeleteReligionPublishesEvent(t *testing.T) {
	ctx := fixedCtx(t)
	svc, bus := newTestService(t)
	religion, err := svc.CreateReligion(ctx, "f1", "Order of Dawn", "sun")
	require.NoError(t, err)

	var got []events.Event
	bus.Subscribe(func(_ context.Context, e events.Event) { got = append(got, e) })

	t.Run("non-founder cannot delete", func(t *testing.T) {
		err := svc.DeleteReligion(ctx, "p2", religion.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("founder delete cascades via event", func(t *testing.T) {
		require.NoError(t, svc.DeleteReligion(ctx, "f1", religion.ID))
		require.Len(t, got, 1)
		assert.Equal(t, events.KindReligionDeleted, got[0].Kind)
		assert.Equal(t, religion.ID, got[0].ReligionID)

		_, err := svc.GetReligion(ctx, religion.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSweepExpiredBans(t *testing.T) {
	ctx := fixedCtx(t)
	svc, _ := newTestService(t)
	religion, err := svc.CreateReligion(ctx, "f1", "Order of Dawn", "sun")
	require.NoError(t, err)

	dur := time.Hour
	require.NoError(t, svc.BanMember(ctx, "f1", religion.ID, "p2", "spam", &dur))
	require.NoError(t, svc.BanMember(ctx, "f1", religion.ID, "p3", "worse", nil))

	later := requestcontext.WithTime(context.Background(),
		time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, svc.SweepExpiredBans(later))

	updated, err := svc.GetReligion(ctx, religion.ID)
	require.NoError(t, err)
	assert.Len(t, updated.Bans, 1)
}
