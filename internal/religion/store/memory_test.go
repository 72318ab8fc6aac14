package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pantheon/internal/religion/models"
	id "pantheon/pkg/domain"
	"pantheon/pkg/platform/sentinel"
)

type ReligionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ReligionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestReligionStoreSuite(t *testing.T) {
	suite.Run(t, new(ReligionStoreSuite))
}

func (s *ReligionStoreSuite) newReligion(name string, founder id.PlayerID) *models.Religion {
	religion, err := models.NewReligion(id.NewReligionID(), name, models.DomainSun, founder, string(founder), time.Now().UTC())
	s.Require().NoError(err)
	return religion
}

func (s *ReligionStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by ID", func() {
		religion := s.newReligion("Order of Dawn", "f1")
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, religion))

		found, err := s.store.FindByID(s.ctx, religion.ID)
		s.Require().NoError(err)
		s.Equal("Order of Dawn", found.Name)
	})

	s.Run("finds by member", func() {
		religion := s.newReligion("Moon Court", "f2")
		s.Require().NoError(s.store.CreateIfAvailable(s.ctx, religion))

		found, err := s.store.FindByMember(s.ctx, "f2")
		s.Require().NoError(err)
		s.Equal(religion.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewReligionID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ReligionStoreSuite) TestNameUniqueness() {
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newReligion("Order of Dawn", "f1")))

	err := s.store.CreateIfAvailable(s.ctx, s.newReligion("ORDER OF DAWN", "f2"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *ReligionStoreSuite) TestOneReligionPerPlayer() {
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newReligion("Order of Dawn", "f1")))

	err := s.store.CreateIfAvailable(s.ctx, s.newReligion("Second Order", "f1"))
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *ReligionStoreSuite) TestExecute() {
	religion := s.newReligion("Order of Dawn", "f1")
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, religion))
	now := time.Now().UTC()

	s.Run("validation failure aborts without mutation", func() {
		_, err := s.store.Execute(s.ctx, religion.ID,
			func(r *models.Religion) error { return sentinel.ErrInvalidState },
			func(r *models.Religion) { r.Name = "Mutated" },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, religion.ID)
		s.Require().NoError(err)
		s.Equal("Order of Dawn", found.Name)
	})

	s.Run("mutation updates the member index", func() {
		_, err := s.store.Execute(s.ctx, religion.ID, nil, func(r *models.Religion) {
			s.Require().NoError(r.AddMember("p2", "Bea", now))
		})
		s.Require().NoError(err)

		found, err := s.store.FindByMember(s.ctx, "p2")
		s.Require().NoError(err)
		s.Equal(religion.ID, found.ID)
	})

	s.Run("removal clears the member index", func() {
		_, err := s.store.Execute(s.ctx, religion.ID, nil, func(r *models.Religion) {
			s.Require().NoError(r.RemoveMember("p2", now))
		})
		s.Require().NoError(err)

		_, err = s.store.FindByMember(s.ctx, "p2")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ReligionStoreSuite) TestDeleteClearsIndexes() {
	religion := s.newReligion("Order of Dawn", "f1")
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, religion))

	_, err := s.store.Delete(s.ctx, religion.ID)
	s.Require().NoError(err)

	_, err = s.store.FindByMember(s.ctx, "f1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Name is free again.
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, s.newReligion("Order of Dawn", "f9")))
}

func (s *ReligionStoreSuite) TestSnapshotIsolation() {
	religion := s.newReligion("Order of Dawn", "f1")
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, religion))

	found, err := s.store.FindByID(s.ctx, religion.ID)
	s.Require().NoError(err)
	found.Name = "Tampered"
	found.MemberIDs[0] = "tampered"

	again, err := s.store.FindByID(s.ctx, religion.ID)
	s.Require().NoError(err)
	s.Equal("Order of Dawn", again.Name)
	s.Equal(id.PlayerID("f1"), again.MemberIDs[0])
}

// TestConcurrentMutation exercises the lock under parallel prestige grants;
// run with -race.
func (s *ReligionStoreSuite) TestConcurrentMutation() {
	religion := s.newReligion("Order of Dawn", "f1")
	s.Require().NoError(s.store.CreateIfAvailable(s.ctx, religion))
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, religion.ID, nil, func(r *models.Religion) {
				r.AddPrestige(10, now)
			})
			s.Require().NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(s.ctx, religion.ID)
	s.Require().NoError(err)
	s.Equal(int64(500), found.LifetimePrestige)
}
