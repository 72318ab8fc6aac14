package models

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pantheon/pkg/domain"
)

func newTestReligion(t *testing.T) *Religion {
	t.Helper()
	r, err := NewReligion(id.NewReligionID(), "Order of Dawn", DomainSun, "founder1", "Aurelia", time.Now().UTC())
	require.NoError(t, err)
	return r
}

func TestNewReligion(t *testing.T) {
	t.Run("seeds founder as sole member with founder role", func(t *testing.T) {
		r := newTestReligion(t)
		assert.Equal(t, []id.PlayerID{"founder1"}, r.MemberIDs)
		assert.Equal(t, RoleFounder, r.MemberRoles["founder1"])
		assert.Len(t, r.Roles, 3)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewReligion(id.NewReligionID(), "  ", DomainSun, "f", "F", time.Now())
		require.Error(t, err)
	})

	t.Run("rejects unknown domain", func(t *testing.T) {
		_, err := NewReligion(id.NewReligionID(), "Order", Domain("chaos"), "f", "F", time.Now())
		require.Error(t, err)
	})
}

func TestAddPrestigeMonotonic(t *testing.T) {
	r := newTestReligion(t)
	now := time.Now().UTC()

	amounts := []int64{-50, 0, 100, 2_399, 1, 7_500, 40_000, 12345}
	for _, amount := range amounts {
		lifetimeBefore := r.LifetimePrestige
		rankBefore := r.Rank()
		r.AddPrestige(amount, now)
		assert.GreaterOrEqual(t, r.LifetimePrestige, lifetimeBefore)
		assert.GreaterOrEqual(t, r.Rank(), rankBefore)
	}
}

func TestRankThresholds(t *testing.T) {
	cases := []struct {
		lifetime int64
		want     Rank
	}{
		{0, RankFledgling},
		{2_499, RankFledgling},
		{2_500, RankEstablished},
		{9_999, RankEstablished},
		{10_000, RankRenowned},
		{24_999, RankRenowned},
		{25_000, RankLegendary},
		{49_999, RankLegendary},
		{50_000, RankMythic},
		{1_000_000, RankMythic},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RankFor(tc.lifetime), fmt.Sprintf("lifetime=%d", tc.lifetime))
	}
}

func TestRemovePrestige(t *testing.T) {
	r := newTestReligion(t)
	now := time.Now().UTC()
	r.AddPrestige(3_000, now)

	t.Run("insufficient balance is a no-op", func(t *testing.T) {
		ok := r.RemovePrestige(5_000, now)
		assert.False(t, ok)
		assert.Equal(t, int64(3_000), r.Prestige)
	})

	t.Run("spending never lowers rank", func(t *testing.T) {
		rankBefore := r.Rank()
		require.True(t, r.RemovePrestige(3_000, now))
		assert.Equal(t, int64(0), r.Prestige)
		assert.Equal(t, rankBefore, r.Rank())
		assert.Equal(t, int64(3_000), r.LifetimePrestige)
	})

	t.Run("non-positive amounts fail", func(t *testing.T) {
		assert.False(t, r.RemovePrestige(0, now))
		assert.False(t, r.RemovePrestige(-5, now))
	})
}

// TestFractionalPrestigeConservation checks that any split of a real value V
// into fractional grants eventually awards floor(V) within one pending unit.
func TestFractionalPrestigeConservation(t *testing.T) {
	now := time.Now().UTC()

	t.Run("even split", func(t *testing.T) {
		r := newTestReligion(t)
		for i := 0; i < 1000; i++ {
			r.AddFractionalPrestige(0.1, now)
		}
		// 1000 * 0.1 = 100, allow one pending fractional unit
		assert.InDelta(t, 100, r.LifetimePrestige, 1)
		assert.Less(t, r.PrestigeRemainder, 1.0)
	})

	t.Run("random split conserves the sum", func(t *testing.T) {
		r := newTestReligion(t)
		rng := rand.New(rand.NewSource(42))
		total := 0.0
		for i := 0; i < 500; i++ {
			amount := rng.Float64() * 3
			total += amount
			r.AddFractionalPrestige(amount, now)
		}
		assert.InDelta(t, math.Floor(total), float64(r.LifetimePrestige), 1)
	})

	t.Run("negative amounts are no-ops", func(t *testing.T) {
		r := newTestReligion(t)
		awarded, _ := r.AddFractionalPrestige(-0.5, now)
		assert.Zero(t, awarded)
		assert.Zero(t, r.PrestigeRemainder)
	})
}

func TestActivityLogBounded(t *testing.T) {
	r := newTestReligion(t)
	for i := 0; i < 120; i++ {
		r.AppendActivity(ActivityEntry{Action: fmt.Sprintf("action-%d", i)}, 100)
	}
	require.Len(t, r.Activity, 100)
	// Newest first: the last appended entry heads the log.
	assert.Equal(t, "action-119", r.Activity[0].Action)
	assert.Equal(t, "action-20", r.Activity[99].Action)
}

func TestMembership(t *testing.T) {
	now := time.Now().UTC()

	t.Run("keeps insertion order with founder first", func(t *testing.T) {
		r := newTestReligion(t)
		require.NoError(t, r.AddMember("p2", "Bea", now))
		require.NoError(t, r.AddMember("p3", "Cal", now))
		assert.Equal(t, []id.PlayerID{"founder1", "p2", "p3"}, r.MemberIDs)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		r := newTestReligion(t)
		require.NoError(t, r.AddMember("p2", "Bea", now))
		require.Error(t, r.AddMember("p2", "Bea", now))
	})

	t.Run("founder cannot be removed", func(t *testing.T) {
		r := newTestReligion(t)
		require.Error(t, r.RemoveMember("founder1", now))
	})
}

func TestBans(t *testing.T) {
	now := time.Now().UTC()

	t.Run("banning a member removes them", func(t *testing.T) {
		r := newTestReligion(t)
		require.NoError(t, r.AddMember("p2", "Bea", now))
		require.NoError(t, r.Ban("p2", "griefing", nil, now))
		assert.False(t, r.IsMember("p2"))
		assert.True(t, r.IsBanned("p2", now))
	})

	t.Run("expired bans read as not banned without a sweep", func(t *testing.T) {
		r := newTestReligion(t)
		expiry := now.Add(time.Hour)
		require.NoError(t, r.Ban("p2", "spam", &expiry, now))
		assert.True(t, r.IsBanned("p2", now))
		assert.False(t, r.IsBanned("p2", now.Add(2*time.Hour)))
		// Record still present until swept.
		assert.Len(t, r.Bans, 1)
	})

	t.Run("sweep purges expired entries", func(t *testing.T) {
		r := newTestReligion(t)
		expiry := now.Add(time.Hour)
		require.NoError(t, r.Ban("p2", "spam", &expiry, now))
		require.NoError(t, r.Ban("p3", "worse", nil, now))
		removed := r.SweepExpiredBans(now.Add(2 * time.Hour))
		assert.Equal(t, 1, removed)
		assert.Len(t, r.Bans, 1)
	})

	t.Run("a banned player cannot rejoin", func(t *testing.T) {
		r := newTestReligion(t)
		require.NoError(t, r.Ban("p2", "griefing", nil, now))
		require.Error(t, r.AddMember("p2", "Bea", now))
	})

	t.Run("the founder cannot be banned", func(t *testing.T) {
		r := newTestReligion(t)
		require.Error(t, r.Ban("founder1", "mutiny", nil, now))
	})
}

func TestCloneIsolation(t *testing.T) {
	now := time.Now().UTC()
	r := newTestReligion(t)
	require.NoError(t, r.AddMember("p2", "Bea", now))

	clone := r.Clone()
	clone.MemberIDs[0] = "tampered"
	clone.Roles[RoleOfficer].Permissions = 0
	clone.MemberNames["p2"] = "tampered"

	assert.Equal(t, id.PlayerID("founder1"), r.MemberIDs[0])
	assert.NotZero(t, r.Roles[RoleOfficer].Permissions)
	assert.Equal(t, "Bea", r.MemberNames["p2"])
}

func TestEnsureCollections(t *testing.T) {
	// Simulates a partially persisted aggregate with nil collections.
	r := &Religion{ID: id.NewReligionID(), FounderID: "f"}
	r.EnsureCollections()
	require.NotNil(t, r.Bans)
	require.NotNil(t, r.Blessings)
	require.NotNil(t, r.Roles)
	assert.False(t, r.IsBanned("p", time.Now()))
}
