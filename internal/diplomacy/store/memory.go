// Package store holds the diplomacy table: one store instance covers every
// relationship and proposal in the world.
package store

import (
	"context"
	"sync"

	"pantheon/internal/diplomacy/models"
	id "pantheon/pkg/domain"
	"pantheon/pkg/platform/sentinel"
)

// InMemory guards the whole relationship/proposal table behind one RWMutex.
// A secondary index maps civilization ID to the relationship IDs it appears
// in; it is resynced on every add and remove.
type InMemory struct {
	mu            sync.RWMutex
	relationships map[id.RelationshipID]*models.Relationship
	// pairIndex maps the canonical pair key to the single relationship for
	// that pair.
	pairIndex map[models.PairKey]id.RelationshipID
	// civIndex is the secondary index: civilization -> relationship IDs.
	civIndex map[id.CivilizationID][]id.RelationshipID

	proposals map[id.ProposalID]*models.Proposal
	// directionIndex maps proposer|target to the pending directional proposal.
	directionIndex map[string]id.ProposalID
}

// NewInMemory constructs an empty diplomacy store.
func NewInMemory() *InMemory {
	return &InMemory{
		relationships:  make(map[id.RelationshipID]*models.Relationship),
		pairIndex:      make(map[models.PairKey]id.RelationshipID),
		civIndex:       make(map[id.CivilizationID][]id.RelationshipID),
		proposals:      make(map[id.ProposalID]*models.Proposal),
		directionIndex: make(map[string]id.ProposalID),
	}
}

func directionKey(proposer, target id.CivilizationID) string {
	return proposer.String() + ">" + target.String()
}

// PutRelationship inserts or replaces the relationship for its pair,
// updating both indexes. Replacement covers DeclareWar overwriting an
// existing record.
func (s *InMemory) PutRelationship(_ context.Context, rel *models.Relationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.pairIndex[rel.Key()]; ok {
		s.removeRelationshipLocked(existingID)
	}
	s.relationships[rel.ID] = rel.Clone()
	s.pairIndex[rel.Key()] = rel.ID
	s.civIndex[rel.CivA] = append(s.civIndex[rel.CivA], rel.ID)
	s.civIndex[rel.CivB] = append(s.civIndex[rel.CivB], rel.ID)
}

// FindRelationship returns a snapshot of the relationship for the pair.
func (s *InMemory) FindRelationship(_ context.Context, a, b id.CivilizationID) (*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	relID, ok := s.pairIndex[models.NewPairKey(a, b)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.relationships[relID].Clone(), nil
}

// RelationshipsOf returns snapshots of every relationship the civilization
// appears in, via the secondary index.
func (s *InMemory) RelationshipsOf(_ context.Context, civID id.CivilizationID) ([]*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.civIndex[civID]
	out := make([]*models.Relationship, 0, len(ids))
	for _, relID := range ids {
		out = append(out, s.relationships[relID].Clone())
	}
	return out, nil
}

// ExecuteRelationship runs validate then mutate on the live record for the
// pair under the write lock. Returns a snapshot of the mutated record.
func (s *InMemory) ExecuteRelationship(
	_ context.Context,
	a, b id.CivilizationID,
	validate func(r *models.Relationship) error,
	mutate func(r *models.Relationship),
) (*models.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	relID, ok := s.pairIndex[models.NewPairKey(a, b)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rel := s.relationships[relID]
	if validate != nil {
		if err := validate(rel); err != nil {
			return nil, err
		}
	}
	mutate(rel)
	return rel.Clone(), nil
}

// DeleteRelationship removes the relationship for the pair from all indexes,
// returning its final state.
func (s *InMemory) DeleteRelationship(_ context.Context, a, b id.CivilizationID) (*models.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	relID, ok := s.pairIndex[models.NewPairKey(a, b)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rel := s.relationships[relID]
	s.removeRelationshipLocked(relID)
	return rel, nil
}

// PutProposal records a pending proposal. At most one proposal may exist per
// direction.
func (s *InMemory) PutProposal(_ context.Context, proposal *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := directionKey(proposal.Proposer, proposal.Target)
	if _, ok := s.directionIndex[key]; ok {
		return sentinel.ErrConflict
	}
	s.proposals[proposal.ID] = proposal.Clone()
	s.directionIndex[key] = proposal.ID
	return nil
}

// FindProposal returns a snapshot of the proposal.
func (s *InMemory) FindProposal(_ context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if proposal, ok := s.proposals[proposalID]; ok {
		return proposal.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// FindProposalByDirection returns the pending proposer->target proposal.
func (s *InMemory) FindProposalByDirection(_ context.Context, proposer, target id.CivilizationID) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposalID, ok := s.directionIndex[directionKey(proposer, target)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.proposals[proposalID].Clone(), nil
}

// ProposalsFor returns snapshots of every proposal targeting the civilization.
func (s *InMemory) ProposalsFor(_ context.Context, target id.CivilizationID) ([]*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Proposal
	for _, proposal := range s.proposals {
		if proposal.Target == target {
			out = append(out, proposal.Clone())
		}
	}
	return out, nil
}

// DeleteProposal removes the proposal, returning its final state.
func (s *InMemory) DeleteProposal(_ context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.proposals[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.proposals, proposalID)
	delete(s.directionIndex, directionKey(proposal.Proposer, proposal.Target))
	return proposal, nil
}

// PurgeCivilization removes every relationship and proposal referencing the
// civilization. Used for disband cleanup. Returns the removed relationships.
func (s *InMemory) PurgeCivilization(_ context.Context, civID id.CivilizationID) []*models.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*models.Relationship
	for _, relID := range append([]id.RelationshipID(nil), s.civIndex[civID]...) {
		removed = append(removed, s.relationships[relID])
		s.removeRelationshipLocked(relID)
	}
	for proposalID, proposal := range s.proposals {
		if proposal.Proposer == civID || proposal.Target == civID {
			delete(s.proposals, proposalID)
			delete(s.directionIndex, directionKey(proposal.Proposer, proposal.Target))
		}
	}
	return removed
}

// RelationshipPairs returns the civ pairs currently on record. The sweeper
// iterates this list and locks per item rather than across the whole table.
func (s *InMemory) RelationshipPairs(_ context.Context) [][2]id.CivilizationID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][2]id.CivilizationID, 0, len(s.relationships))
	for _, rel := range s.relationships {
		out = append(out, [2]id.CivilizationID{rel.CivA, rel.CivB})
	}
	return out
}

// ProposalIDs returns every pending proposal ID for the sweeper.
func (s *InMemory) ProposalIDs(_ context.Context) []id.ProposalID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.ProposalID, 0, len(s.proposals))
	for proposalID := range s.proposals {
		out = append(out, proposalID)
	}
	return out
}

// Dump returns snapshots of every relationship and proposal, for persistence.
func (s *InMemory) Dump(_ context.Context) ([]*models.Relationship, []*models.Proposal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rels := make([]*models.Relationship, 0, len(s.relationships))
	for _, rel := range s.relationships {
		rels = append(rels, rel.Clone())
	}
	proposals := make([]*models.Proposal, 0, len(s.proposals))
	for _, proposal := range s.proposals {
		proposals = append(proposals, proposal.Clone())
	}
	return rels, proposals
}

// Hydrate loads persisted records, rebuilding indexes. Used at startup.
func (s *InMemory) Hydrate(_ context.Context, rels []*models.Relationship, proposals []*models.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rel := range rels {
		s.relationships[rel.ID] = rel
		s.pairIndex[rel.Key()] = rel.ID
		s.civIndex[rel.CivA] = append(s.civIndex[rel.CivA], rel.ID)
		s.civIndex[rel.CivB] = append(s.civIndex[rel.CivB], rel.ID)
	}
	for _, proposal := range proposals {
		s.proposals[proposal.ID] = proposal
		s.directionIndex[directionKey(proposal.Proposer, proposal.Target)] = proposal.ID
	}
}

// removeRelationshipLocked drops the relationship from the primary map, the
// pair index, and both sides of the secondary index. Caller holds the write
// lock.
func (s *InMemory) removeRelationshipLocked(relID id.RelationshipID) {
	rel, ok := s.relationships[relID]
	if !ok {
		return
	}
	delete(s.relationships, relID)
	delete(s.pairIndex, rel.Key())
	for _, civID := range []id.CivilizationID{rel.CivA, rel.CivB} {
		ids := s.civIndex[civID]
		for i, existing := range ids {
			if existing == relID {
				ids = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(s.civIndex, civID)
		} else {
			s.civIndex[civID] = ids
		}
	}
}
