// Package store holds per-civilization milestone state.
package store

import (
	"context"
	"sync"

	"pantheon/internal/milestone/models"
	id "pantheon/pkg/domain"
	"pantheon/pkg/platform/sentinel"
)

// InMemory guards every civilization's milestone state behind one RWMutex.
// State is created lazily on first touch.
type InMemory struct {
	mu     sync.RWMutex
	states map[id.CivilizationID]*models.CivState
}

// NewInMemory constructs an empty store.
func NewInMemory() *InMemory {
	return &InMemory{states: make(map[id.CivilizationID]*models.CivState)}
}

// Find returns a snapshot of the civilization's milestone state.
func (s *InMemory) Find(_ context.Context, civID id.CivilizationID) (*models.CivState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[civID]; ok {
		return state.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// Execute runs validate then mutate on the live state under the write lock,
// creating empty state on first touch. Returns a snapshot.
func (s *InMemory) Execute(
	_ context.Context,
	civID id.CivilizationID,
	validate func(st *models.CivState) error,
	mutate func(st *models.CivState),
) (*models.CivState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[civID]
	if !ok {
		state = models.NewCivState(civID)
		s.states[civID] = state
	}
	if validate != nil {
		if err := validate(state); err != nil {
			return nil, err
		}
	}
	mutate(state)
	return state.Clone(), nil
}

// Delete discards the civilization's milestone state. Used on disband.
func (s *InMemory) Delete(_ context.Context, civID id.CivilizationID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, civID)
}

// List returns snapshots of every tracked state.
func (s *InMemory) List(_ context.Context) []*models.CivState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.CivState, 0, len(s.states))
	for _, state := range s.states {
		out = append(out, state.Clone())
	}
	return out
}

// Hydrate loads persisted state. Used at startup.
func (s *InMemory) Hydrate(_ context.Context, state *models.CivState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.RelationshipKindsFormed == nil {
		state.RelationshipKindsFormed = make(map[string]bool)
	}
	if state.Progress == nil {
		state.Progress = make(map[string]*models.Progress)
	}
	s.states[state.CivilizationID] = state
}
