package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pantheon/pkg/domain"
)

func newTestCiv(t *testing.T) *Civilization {
	t.Helper()
	civ, err := NewCivilization(id.NewCivilizationID(), "Dawn Concord", "f1", id.NewReligionID(), time.Now().UTC())
	require.NoError(t, err)
	return civ
}

func TestMembershipBound(t *testing.T) {
	civ := newTestCiv(t)

	t.Run("starts provisional with the founding religion", func(t *testing.T) {
		assert.Len(t, civ.Religions, 1)
		assert.False(t, civ.IsEstablished())
	})

	t.Run("second religion establishes", func(t *testing.T) {
		require.NoError(t, civ.AddReligion(id.NewReligionID()))
		assert.True(t, civ.IsEstablished())
	})

	t.Run("duplicate add fails without mutation", func(t *testing.T) {
		err := civ.AddReligion(civ.Religions[0])
		require.Error(t, err)
		assert.Len(t, civ.Religions, 2)
	})

	t.Run("fifth religion fails without mutation", func(t *testing.T) {
		require.NoError(t, civ.AddReligion(id.NewReligionID()))
		require.NoError(t, civ.AddReligion(id.NewReligionID()))
		assert.Len(t, civ.Religions, MaxReligions)

		err := civ.AddReligion(id.NewReligionID())
		require.Error(t, err)
		assert.Len(t, civ.Religions, MaxReligions)
	})

	t.Run("removal below minimum leaves it provisional", func(t *testing.T) {
		for len(civ.Religions) > 1 {
			require.NoError(t, civ.RemoveReligion(civ.Religions[len(civ.Religions)-1]))
		}
		assert.False(t, civ.IsEstablished())
		assert.Nil(t, civ.DisbandedAt)
	})

	t.Run("removing a non-member fails", func(t *testing.T) {
		assert.Error(t, civ.RemoveReligion(id.NewReligionID()))
	})
}

func TestNewCivilizationValidation(t *testing.T) {
	_, err := NewCivilization(id.NewCivilizationID(), "ab", "f1", id.NewReligionID(), time.Now().UTC())
	assert.Error(t, err)
}

func TestInviteValidity(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	invite := Invite{SentAt: now, ExpiresAt: now.Add(7 * 24 * time.Hour)}

	assert.True(t, invite.Valid(now.Add(6*24*time.Hour)))
	assert.False(t, invite.Valid(now.Add(7*24*time.Hour)))
	assert.False(t, invite.Valid(now.Add(8*24*time.Hour)))
}

func TestCloneIsolation(t *testing.T) {
	civ := newTestCiv(t)
	cp := civ.Clone()
	require.NoError(t, cp.AddReligion(id.NewReligionID()))
	assert.Len(t, civ.Religions, 1)
}
