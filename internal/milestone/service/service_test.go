package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantheon/internal/events"
	"pantheon/internal/milestone/models"
	"pantheon/internal/milestone/store"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// fakeWorld stands in for the civilization and religion directories and the
// prestige awarder.
type fakeWorld struct {
	members  map[id.CivilizationID][]id.ReligionID
	founders map[id.CivilizationID]id.ReligionID
	domains  map[id.ReligionID]string
	counts   map[id.ReligionID]int

	prestigeGrants map[id.ReligionID]int64
	blessings      map[id.ReligionID][]string
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		members:        make(map[id.CivilizationID][]id.ReligionID),
		founders:       make(map[id.CivilizationID]id.ReligionID),
		domains:        make(map[id.ReligionID]string),
		counts:         make(map[id.ReligionID]int),
		prestigeGrants: make(map[id.ReligionID]int64),
		blessings:      make(map[id.ReligionID][]string),
	}
}

func (w *fakeWorld) MembersOf(_ context.Context, civID id.CivilizationID) ([]id.ReligionID, error) {
	members, ok := w.members[civID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "civilization not found")
	}
	return members, nil
}

func (w *fakeWorld) FounderReligionOf(_ context.Context, civID id.CivilizationID) (id.ReligionID, error) {
	founder, ok := w.founders[civID]
	if !ok {
		return id.ReligionID{}, dErrors.New(dErrors.CodeNotFound, "civilization not found")
	}
	return founder, nil
}

func (w *fakeWorld) DomainOf(_ context.Context, religionID id.ReligionID) (string, error) {
	return w.domains[religionID], nil
}

func (w *fakeWorld) MemberCountOf(_ context.Context, religionID id.ReligionID) (int, error) {
	return w.counts[religionID], nil
}

func (w *fakeWorld) GrantPrestige(_ context.Context, religionID id.ReligionID, amount int64) error {
	w.prestigeGrants[religionID] += amount
	return nil
}

func (w *fakeWorld) UnlockBlessing(_ context.Context, religionID id.ReligionID, blessingID string) error {
	w.blessings[religionID] = append(w.blessings[religionID], blessingID)
	return nil
}

func (w *fakeWorld) addReligion(civID id.CivilizationID, domain string, memberCount int) id.ReligionID {
	religionID := id.NewReligionID()
	w.members[civID] = append(w.members[civID], religionID)
	w.domains[religionID] = domain
	w.counts[religionID] = memberCount
	if _, ok := w.founders[civID]; !ok {
		w.founders[civID] = religionID
	}
	return religionID
}

type fixture struct {
	svc   *Service
	world *fakeWorld
	bus   *events.Bus
	ctx   context.Context
	now   time.Time
	civ   id.CivilizationID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	world := newFakeWorld()
	bus := events.NewBus()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	civ := id.NewCivilizationID()
	world.members[civ] = nil
	return &fixture{
		svc:   New(store.NewInMemory(), world, world, world, bus, opts...),
		world: world,
		bus:   bus,
		ctx:   requestcontext.WithTime(context.Background(), now),
		now:   now,
		civ:   civ,
	}
}

func (f *fixture) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestCheckMilestonesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.world.addReligion(f.civ, "sun", 5)
	f.world.addReligion(f.civ, "moon", 3)

	completed, err := f.svc.CheckMilestones(f.ctx, f.civ)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "united-faiths", completed[0].ID)

	t.Run("re-evaluation completes nothing", func(t *testing.T) {
		again, err := f.svc.CheckMilestones(f.ctx, f.civ)
		require.NoError(t, err)
		assert.Empty(t, again)
	})

	t.Run("payout reached the founding religion exactly once", func(t *testing.T) {
		founder := f.world.founders[f.civ]
		assert.Equal(t, int64(500), f.world.prestigeGrants[founder])
	})

	t.Run("major completion raised the rank", func(t *testing.T) {
		state, err := f.svc.GetProgress(f.ctx, f.civ)
		require.NoError(t, err)
		assert.Equal(t, 1, state.Rank)
		assert.True(t, state.IsCompleted("united-faiths"))
	})
}

func TestDistinctDomainTrigger(t *testing.T) {
	f := newFixture(t)
	f.world.addReligion(f.civ, "sun", 1)
	f.world.addReligion(f.civ, "sun", 1)
	f.world.addReligion(f.civ, "moon", 1)

	completed, err := f.svc.CheckMilestones(f.ctx, f.civ)
	require.NoError(t, err)
	ids := completedIDs(completed)
	assert.NotContains(t, ids, "pantheon-of-many", "two distinct domains are not three")

	f.world.addReligion(f.civ, "war", 1)
	completed, err = f.svc.CheckMilestones(f.ctx, f.civ)
	require.NoError(t, err)
	assert.Contains(t, completedIDs(completed), "pantheon-of-many")
}

func TestCounterTriggers(t *testing.T) {
	f := newFixture(t)
	f.world.addReligion(f.civ, "war", 4)

	t.Run("rituals", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			require.NoError(t, f.svc.RecordRitual(f.ctx, f.civ))
		}
		state, err := f.svc.GetProgress(f.ctx, f.civ)
		require.NoError(t, err)
		assert.True(t, state.IsCompleted("first-rites"))
		assert.Equal(t, int64(10), state.Rituals)
	})

	t.Run("war kills", func(t *testing.T) {
		for i := 0; i < 25; i++ {
			require.NoError(t, f.svc.RecordWarKill(f.ctx, f.civ))
		}
		state, err := f.svc.GetProgress(f.ctx, f.civ)
		require.NoError(t, err)
		assert.True(t, state.IsCompleted("blood-tithe"))
	})

	t.Run("holy site tier", func(t *testing.T) {
		require.NoError(t, f.svc.RecordHolySite(f.ctx, f.civ, 3, 3))
		state, err := f.svc.GetProgress(f.ctx, f.civ)
		require.NoError(t, err)
		assert.True(t, state.IsCompleted("sacred-ground"))
		assert.True(t, state.IsCompleted("towering-faith"))

		t.Run("blessing flowed to the founding religion", func(t *testing.T) {
			founder := f.world.founders[f.civ]
			assert.Contains(t, f.world.blessings[founder], "blessing-sanctified-walls")
		})
	})
}

func TestSharedBlessingReachesEveryMember(t *testing.T) {
	f := newFixture(t)
	first := f.world.addReligion(f.civ, "sun", 5)
	second := f.world.addReligion(f.civ, "moon", 3)

	require.NoError(t, f.svc.RecordHolySite(f.ctx, f.civ, 3, 3))

	state, err := f.svc.GetProgress(f.ctx, f.civ)
	require.NoError(t, err)
	require.True(t, state.IsCompleted("towering-faith"))

	for _, member := range []id.ReligionID{first, second} {
		assert.Contains(t, f.world.blessings[member], "blessing-sanctified-walls")
	}

	t.Run("prestige payout still goes to the founder alone", func(t *testing.T) {
		assert.Zero(t, f.world.prestigeGrants[second])
	})
}

func TestRelationshipTrigger(t *testing.T) {
	f := newFixture(t)
	other := id.NewCivilizationID()
	f.world.members[other] = nil

	f.svc.HandleEvent(f.ctx, events.Event{
		Kind:                events.KindRelationshipEstablished,
		CivilizationID:      f.civ,
		OtherCivilizationID: other,
		RelationshipStatus:  "alliance",
	})

	for _, civID := range []id.CivilizationID{f.civ, other} {
		state, err := f.svc.GetProgress(f.ctx, civID)
		require.NoError(t, err)
		assert.True(t, state.IsCompleted("sworn-allies"))
	}
}

func TestTemporaryBenefitExpiry(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 100; i++ {
		require.NoError(t, f.svc.RecordRitual(f.ctx, f.civ))
	}
	state, err := f.svc.GetProgress(f.ctx, f.civ)
	require.NoError(t, err)
	require.True(t, state.IsCompleted("endless-devotion"))

	bonuses, err := f.svc.GetActiveBonuses(f.ctx, f.civ)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, bonuses.Prestige, 1e-9, "temporary multiplier active inside its window")

	later := f.at(f.now.Add(8 * 24 * time.Hour))
	bonuses, err = f.svc.GetActiveBonuses(later, f.civ)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, bonuses.Prestige, 1e-9, "expired benefit drops out of the active set")

	t.Run("completion itself never expires", func(t *testing.T) {
		state, err := f.svc.GetProgress(later, f.civ)
		require.NoError(t, err)
		assert.True(t, state.IsCompleted("endless-devotion"))
	})
}

func TestBonusesCombineMultiplicatively(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.world.addReligion(f.civ, []string{"sun", "moon", "war", "sea"}[i], 1)
	}
	_, err := f.svc.CheckMilestones(f.ctx, f.civ)
	require.NoError(t, err)

	bonuses, err := f.svc.GetActiveBonuses(f.ctx, f.civ)
	require.NoError(t, err)
	// grand-concord multiplies prestige by 1.1; pantheon-of-many multiplies
	// favor by 1.05.
	assert.InDelta(t, 1.1, bonuses.Prestige, 1e-9)
	assert.InDelta(t, 1.05, bonuses.Favor, 1e-9)
	assert.InDelta(t, 1.0, bonuses.Conquest, 1e-9)
}

func TestAllMajorMilestonesCascadesInOneCall(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.world.addReligion(f.civ, []string{"sun", "moon", "war", "sea"}[i], 50)
	}
	for i := 0; i < 100; i++ {
		require.NoError(t, f.svc.RecordRitual(f.ctx, f.civ))
	}
	require.NoError(t, f.svc.RecordHolySite(f.ctx, f.civ, 3, 3))

	completed, err := f.svc.CheckMilestones(f.ctx, f.civ)
	require.NoError(t, err)

	state, err := f.svc.GetProgress(f.ctx, f.civ)
	require.NoError(t, err)
	assert.True(t, state.IsCompleted("apotheosis"),
		"completing the final major milestone satisfies the all-majors trigger in the same evaluation")
	_ = completed
}

func TestDisbandDiscardsState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RecordRitual(f.ctx, f.civ))

	f.svc.HandleEvent(f.ctx, events.Event{
		Kind: events.KindCivilizationDisbanded, CivilizationID: f.civ,
	})

	state, err := f.svc.GetProgress(f.ctx, f.civ)
	require.NoError(t, err)
	assert.Zero(t, state.Rituals)
	assert.Empty(t, state.Progress)
}

func completedIDs(defs []models.Definition) []string {
	out := make([]string, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.ID)
	}
	return out
}
