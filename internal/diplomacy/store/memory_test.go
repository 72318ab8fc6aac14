package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pantheon/internal/diplomacy/models"
	id "pantheon/pkg/domain"
	"pantheon/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
	now   time.Time
	civA  id.CivilizationID
	civB  id.CivilizationID
	civC  id.CivilizationID
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.civA = id.NewCivilizationID()
	s.civB = id.NewCivilizationID()
	s.civC = id.NewCivilizationID()
}

func (s *MemoryStoreSuite) TestPairLookupIsOrderIndependent() {
	rel := models.NewRelationship(s.civA, s.civB, models.StatusAlliance, s.civA, s.now, nil)
	s.store.PutRelationship(s.ctx, rel)

	forward, err := s.store.FindRelationship(s.ctx, s.civA, s.civB)
	s.Require().NoError(err)
	reverse, err := s.store.FindRelationship(s.ctx, s.civB, s.civA)
	s.Require().NoError(err)
	s.Equal(forward.ID, reverse.ID)
}

func (s *MemoryStoreSuite) TestSecondaryIndexStaysInSync() {
	ab := models.NewRelationship(s.civA, s.civB, models.StatusAlliance, s.civA, s.now, nil)
	ac := models.NewRelationship(s.civA, s.civC, models.StatusWar, s.civA, s.now, nil)
	s.store.PutRelationship(s.ctx, ab)
	s.store.PutRelationship(s.ctx, ac)

	ofA, err := s.store.RelationshipsOf(s.ctx, s.civA)
	s.Require().NoError(err)
	s.Len(ofA, 2)

	s.Run("every index entry references the civilization", func() {
		for _, rel := range ofA {
			s.True(rel.Involves(s.civA))
		}
	})

	s.Run("removal prunes both sides", func() {
		_, err := s.store.DeleteRelationship(s.ctx, s.civB, s.civA)
		s.Require().NoError(err)

		ofA, err := s.store.RelationshipsOf(s.ctx, s.civA)
		s.Require().NoError(err)
		s.Len(ofA, 1)
		ofB, err := s.store.RelationshipsOf(s.ctx, s.civB)
		s.Require().NoError(err)
		s.Empty(ofB)
	})
}

func (s *MemoryStoreSuite) TestPutReplacesExistingPairRecord() {
	pact := models.NewRelationship(s.civA, s.civB, models.StatusNonAggressionPact, s.civA, s.now, nil)
	s.store.PutRelationship(s.ctx, pact)

	war := models.NewRelationship(s.civB, s.civA, models.StatusWar, s.civB, s.now, nil)
	s.store.PutRelationship(s.ctx, war)

	current, err := s.store.FindRelationship(s.ctx, s.civA, s.civB)
	s.Require().NoError(err)
	s.Equal(models.StatusWar, current.Status)

	ofA, err := s.store.RelationshipsOf(s.ctx, s.civA)
	s.Require().NoError(err)
	s.Len(ofA, 1, "the replaced record must leave the index")
}

func (s *MemoryStoreSuite) TestDirectionalProposalUniqueness() {
	forward := &models.Proposal{
		ID: id.NewProposalID(), Proposer: s.civA, Target: s.civB,
		Status: models.StatusAlliance, SentAt: s.now, ExpiresAt: s.now.Add(7 * 24 * time.Hour),
	}
	s.Require().NoError(s.store.PutProposal(s.ctx, forward))

	s.Run("same direction conflicts", func() {
		dup := &models.Proposal{
			ID: id.NewProposalID(), Proposer: s.civA, Target: s.civB,
			Status: models.StatusAlliance, SentAt: s.now, ExpiresAt: s.now.Add(7 * 24 * time.Hour),
		}
		s.ErrorIs(s.store.PutProposal(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("opposite direction is a distinct record", func() {
		reverse := &models.Proposal{
			ID: id.NewProposalID(), Proposer: s.civB, Target: s.civA,
			Status: models.StatusAlliance, SentAt: s.now, ExpiresAt: s.now.Add(7 * 24 * time.Hour),
		}
		s.NoError(s.store.PutProposal(s.ctx, reverse))

		found, err := s.store.FindProposalByDirection(s.ctx, s.civB, s.civA)
		s.Require().NoError(err)
		s.Equal(reverse.ID, found.ID)
	})

	s.Run("delete frees the direction", func() {
		_, err := s.store.DeleteProposal(s.ctx, forward.ID)
		s.Require().NoError(err)
		again := &models.Proposal{
			ID: id.NewProposalID(), Proposer: s.civA, Target: s.civB,
			Status: models.StatusWar, SentAt: s.now, ExpiresAt: s.now.Add(7 * 24 * time.Hour),
		}
		s.NoError(s.store.PutProposal(s.ctx, again))
	})
}

func (s *MemoryStoreSuite) TestPurgeCivilization() {
	s.store.PutRelationship(s.ctx, models.NewRelationship(s.civA, s.civB, models.StatusAlliance, s.civA, s.now, nil))
	s.store.PutRelationship(s.ctx, models.NewRelationship(s.civA, s.civC, models.StatusWar, s.civA, s.now, nil))
	s.store.PutRelationship(s.ctx, models.NewRelationship(s.civB, s.civC, models.StatusNonAggressionPact, s.civB, s.now, nil))
	s.Require().NoError(s.store.PutProposal(s.ctx, &models.Proposal{
		ID: id.NewProposalID(), Proposer: s.civC, Target: s.civA,
		Status: models.StatusAlliance, SentAt: s.now, ExpiresAt: s.now.Add(time.Hour),
	}))

	removed := s.store.PurgeCivilization(s.ctx, s.civA)
	s.Len(removed, 2)

	ofA, err := s.store.RelationshipsOf(s.ctx, s.civA)
	s.Require().NoError(err)
	s.Empty(ofA)
	s.Empty(s.store.ProposalIDs(s.ctx))

	s.Run("unrelated pair survives", func() {
		_, err := s.store.FindRelationship(s.ctx, s.civB, s.civC)
		s.NoError(err)
	})
}

func (s *MemoryStoreSuite) TestExecuteRelationship() {
	s.store.PutRelationship(s.ctx, models.NewRelationship(s.civA, s.civB, models.StatusNonAggressionPact, s.civA, s.now, nil))

	rel, err := s.store.ExecuteRelationship(s.ctx, s.civB, s.civA, nil,
		func(r *models.Relationship) { r.ViolationCount++ })
	s.Require().NoError(err)
	s.Equal(1, rel.ViolationCount)

	_, err = s.store.ExecuteRelationship(s.ctx, s.civA, s.civC, nil, func(r *models.Relationship) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
