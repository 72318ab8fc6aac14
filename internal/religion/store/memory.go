// Package store holds the religion aggregate store. The in-memory
// implementation is the system of record at runtime; snapshots persist it at
// save points.
package store

import (
	"context"
	"strings"
	"sync"

	"pantheon/internal/religion/models"
	id "pantheon/pkg/domain"
	"pantheon/pkg/platform/sentinel"
)

// InMemory guards every religion aggregate behind one RWMutex. Mutations
// hold the write lock for their full duration; reads copy state into
// independently-owned snapshots before returning.
type InMemory struct {
	mu        sync.RWMutex
	religions map[id.ReligionID]*models.Religion
	// nameIndex enforces case-insensitive name uniqueness.
	nameIndex map[string]id.ReligionID
	// memberIndex enforces "a player belongs to at most one religion".
	memberIndex map[id.PlayerID]id.ReligionID
}

// NewInMemory constructs an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		religions:   make(map[id.ReligionID]*models.Religion),
		nameIndex:   make(map[string]id.ReligionID),
		memberIndex: make(map[id.PlayerID]id.ReligionID),
	}
}

// CreateIfAvailable inserts a new religion when its name is unused and its
// founder is not already in a religion.
func (s *InMemory) CreateIfAvailable(_ context.Context, religion *models.Religion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nameKey := strings.ToLower(religion.Name)
	if _, taken := s.nameIndex[nameKey]; taken {
		return sentinel.ErrConflict
	}
	if _, member := s.memberIndex[religion.FounderID]; member {
		return sentinel.ErrInvalidState
	}

	s.religions[religion.ID] = religion.Clone()
	s.nameIndex[nameKey] = religion.ID
	for _, member := range religion.MemberIDs {
		s.memberIndex[member] = religion.ID
	}
	return nil
}

// FindByID returns a snapshot of the religion.
func (s *InMemory) FindByID(_ context.Context, religionID id.ReligionID) (*models.Religion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if religion, ok := s.religions[religionID]; ok {
		return religion.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// FindByMember returns a snapshot of the religion the player belongs to.
func (s *InMemory) FindByMember(_ context.Context, player id.PlayerID) (*models.Religion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	religionID, ok := s.memberIndex[player]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.religions[religionID].Clone(), nil
}

// List returns snapshots of every religion.
func (s *InMemory) List(_ context.Context) ([]*models.Religion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Religion, 0, len(s.religions))
	for _, religion := range s.religions {
		out = append(out, religion.Clone())
	}
	return out, nil
}

// Execute runs validate then mutate on the live aggregate while holding the
// write lock, so the whole validate-then-mutate sequence is atomic. A
// validation error aborts without mutation. Returns a snapshot of the
// mutated aggregate.
func (s *InMemory) Execute(
	_ context.Context,
	religionID id.ReligionID,
	validate func(r *models.Religion) error,
	mutate func(r *models.Religion),
) (*models.Religion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	religion, ok := s.religions[religionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(religion); err != nil {
			return nil, err
		}
	}
	mutate(religion)
	s.resyncIndexes(religion)
	return religion.Clone(), nil
}

// Delete removes the religion and its index entries, returning a final
// snapshot for cascade notification.
func (s *InMemory) Delete(_ context.Context, religionID id.ReligionID) (*models.Religion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	religion, ok := s.religions[religionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.religions, religionID)
	delete(s.nameIndex, strings.ToLower(religion.Name))
	for player, owner := range s.memberIndex {
		if owner == religionID {
			delete(s.memberIndex, player)
		}
	}
	return religion, nil
}

// Hydrate loads a persisted aggregate, rebuilding indexes. Used at startup.
func (s *InMemory) Hydrate(_ context.Context, religion *models.Religion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	religion.EnsureCollections()
	s.religions[religion.ID] = religion
	s.resyncIndexes(religion)
}

// resyncIndexes rebuilds the member and name index entries for one
// aggregate after a mutation may have changed membership or name.
// Caller holds the write lock.
func (s *InMemory) resyncIndexes(religion *models.Religion) {
	for player, owner := range s.memberIndex {
		if owner == religion.ID {
			delete(s.memberIndex, player)
		}
	}
	for _, member := range religion.MemberIDs {
		s.memberIndex[member] = religion.ID
	}
	for key, owner := range s.nameIndex {
		if owner == religion.ID && key != strings.ToLower(religion.Name) {
			delete(s.nameIndex, key)
		}
	}
	s.nameIndex[strings.ToLower(religion.Name)] = religion.ID
}
