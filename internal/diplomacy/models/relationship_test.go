package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pantheon/pkg/domain"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	a, b := id.NewCivilizationID(), id.NewCivilizationID()
	assert.Equal(t, NewPairKey(a, b), NewPairKey(b, a))
	assert.NotEqual(t, NewPairKey(a, b), NewPairKey(a, id.NewCivilizationID()))
}

func TestNewRelationshipCanonicalizesPair(t *testing.T) {
	a, b := id.NewCivilizationID(), id.NewCivilizationID()
	now := time.Now().UTC()

	r1 := NewRelationship(a, b, StatusAlliance, a, now, nil)
	r2 := NewRelationship(b, a, StatusAlliance, b, now, nil)
	assert.Equal(t, r1.CivA, r2.CivA)
	assert.Equal(t, r1.CivB, r2.CivB)
	assert.True(t, r1.CivA.String() < r1.CivB.String())
	assert.True(t, r1.Involves(a))
	assert.True(t, r1.Involves(b))
	assert.Equal(t, b, r1.Other(a))
	assert.Equal(t, a, r1.Other(b))
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a, b := id.NewCivilizationID(), id.NewCivilizationID()

	t.Run("permanent relationship without break is active", func(t *testing.T) {
		rel := NewRelationship(a, b, StatusAlliance, a, now, nil)
		assert.True(t, rel.IsActive(now.Add(1000*time.Hour)))
	})

	t.Run("scheduling a break suspends immediately", func(t *testing.T) {
		rel := NewRelationship(a, b, StatusNonAggressionPact, a, now, nil)
		breakAt := now.Add(24 * time.Hour)
		rel.BreakScheduledAt = &breakAt

		assert.False(t, rel.IsActive(now), "inactive before the grace window elapses")
		assert.False(t, rel.BreakElapsed(now))
		assert.True(t, rel.BreakElapsed(now.Add(24*time.Hour)))
	})

	t.Run("expiry deactivates", func(t *testing.T) {
		expires := now.Add(time.Hour)
		rel := NewRelationship(a, b, StatusNonAggressionPact, a, now, &expires)
		assert.True(t, rel.IsActive(now))
		assert.False(t, rel.IsActive(expires))
	})
}

func TestFavorMultiplier(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a, b := id.NewCivilizationID(), id.NewCivilizationID()

	tests := []struct {
		name string
		rel  *Relationship
		want float64
	}{
		{"no relationship", nil, 1.0},
		{"war", NewRelationship(a, b, StatusWar, a, now, nil), 1.5},
		{"alliance", NewRelationship(a, b, StatusAlliance, a, now, nil), 0.0},
		{"pact", NewRelationship(a, b, StatusNonAggressionPact, a, now, nil), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FavorMultiplier(tt.rel, now), 1e-9)
		})
	}

	t.Run("suspended alliance is neutral", func(t *testing.T) {
		rel := NewRelationship(a, b, StatusAlliance, a, now, nil)
		breakAt := now.Add(24 * time.Hour)
		rel.BreakScheduledAt = &breakAt
		assert.InDelta(t, 1.0, FavorMultiplier(rel, now), 1e-9)
	})
}

func TestParseStatus(t *testing.T) {
	for _, label := range []string{"non_aggression_pact", "alliance", "war"} {
		_, err := ParseStatus(label)
		require.NoError(t, err)
	}
	_, err := ParseStatus("friendship")
	assert.Error(t, err)

	assert.True(t, StatusAlliance.Proposable())
	assert.False(t, StatusWar.Proposable())
}
