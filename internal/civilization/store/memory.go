// Package store holds the civilization aggregate store and its invite table.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"pantheon/internal/civilization/models"
	id "pantheon/pkg/domain"
	"pantheon/pkg/platform/sentinel"
)

// InMemory guards every civilization and outstanding invite behind one
// RWMutex. Mutations hold the write lock for their full duration; reads copy
// state into independently-owned snapshots before returning.
type InMemory struct {
	mu            sync.RWMutex
	civilizations map[id.CivilizationID]*models.Civilization
	invites       map[id.InviteID]*models.Invite
	// nameIndex enforces case-insensitive name uniqueness.
	nameIndex map[string]id.CivilizationID
	// religionIndex enforces "a religion belongs to at most one civilization".
	religionIndex map[id.ReligionID]id.CivilizationID
}

// NewInMemory constructs an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		civilizations: make(map[id.CivilizationID]*models.Civilization),
		invites:       make(map[id.InviteID]*models.Invite),
		nameIndex:     make(map[string]id.CivilizationID),
		religionIndex: make(map[id.ReligionID]id.CivilizationID),
	}
}

// CreateIfAvailable inserts a new civilization when its name is unused and
// its founding religion is not already in a civilization.
func (s *InMemory) CreateIfAvailable(_ context.Context, civ *models.Civilization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nameKey := strings.ToLower(civ.Name)
	if _, taken := s.nameIndex[nameKey]; taken {
		return sentinel.ErrConflict
	}
	if _, member := s.religionIndex[civ.FounderReligionID]; member {
		return sentinel.ErrInvalidState
	}

	s.civilizations[civ.ID] = civ.Clone()
	s.nameIndex[nameKey] = civ.ID
	for _, religion := range civ.Religions {
		s.religionIndex[religion] = civ.ID
	}
	return nil
}

// FindByID returns a snapshot of the civilization.
func (s *InMemory) FindByID(_ context.Context, civID id.CivilizationID) (*models.Civilization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if civ, ok := s.civilizations[civID]; ok {
		return civ.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

// FindByReligion returns a snapshot of the civilization the religion belongs to.
func (s *InMemory) FindByReligion(_ context.Context, religionID id.ReligionID) (*models.Civilization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	civID, ok := s.religionIndex[religionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.civilizations[civID].Clone(), nil
}

// List returns snapshots of every civilization.
func (s *InMemory) List(_ context.Context) ([]*models.Civilization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Civilization, 0, len(s.civilizations))
	for _, civ := range s.civilizations {
		out = append(out, civ.Clone())
	}
	return out, nil
}

// Execute runs validate then mutate on the live aggregate under the write
// lock. A validation error aborts without mutation. Returns a snapshot.
func (s *InMemory) Execute(
	_ context.Context,
	civID id.CivilizationID,
	validate func(c *models.Civilization) error,
	mutate func(c *models.Civilization),
) (*models.Civilization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	civ, ok := s.civilizations[civID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(civ); err != nil {
			return nil, err
		}
	}
	mutate(civ)
	s.resyncIndexes(civ)
	return civ.Clone(), nil
}

// AddReligionIfFree joins a religion to the civilization, enforcing the
// membership bound and "at most one civilization per religion" atomically
// under the write lock.
func (s *InMemory) AddReligionIfFree(_ context.Context, civID id.CivilizationID, religionID id.ReligionID) (*models.Civilization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	civ, ok := s.civilizations[civID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if owner, taken := s.religionIndex[religionID]; taken && owner != civID {
		return nil, sentinel.ErrInvalidState
	}
	if err := civ.AddReligion(religionID); err != nil {
		return nil, err
	}
	s.religionIndex[religionID] = civID
	return civ.Clone(), nil
}

// Delete removes the civilization, its index entries, and every invite that
// targets it, returning a final snapshot for cascade notification.
func (s *InMemory) Delete(_ context.Context, civID id.CivilizationID) (*models.Civilization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	civ, ok := s.civilizations[civID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.civilizations, civID)
	delete(s.nameIndex, strings.ToLower(civ.Name))
	for religion, owner := range s.religionIndex {
		if owner == civID {
			delete(s.religionIndex, religion)
		}
	}
	for inviteID, invite := range s.invites {
		if invite.CivilizationID == civID {
			delete(s.invites, inviteID)
		}
	}
	return civ, nil
}

// PutInvite records an outstanding invite. At most one live invite may exist
// per (civilization, religion) pair.
func (s *InMemory) PutInvite(_ context.Context, invite *models.Invite, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invites {
		if existing.CivilizationID == invite.CivilizationID &&
			existing.ReligionID == invite.ReligionID && existing.Valid(now) {
			return sentinel.ErrConflict
		}
	}
	cp := *invite
	s.invites[invite.ID] = &cp
	return nil
}

// FindInvite returns a snapshot of the invite.
func (s *InMemory) FindInvite(_ context.Context, inviteID id.InviteID) (*models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if invite, ok := s.invites[inviteID]; ok {
		cp := *invite
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

// ListInvitesFor returns snapshots of every invite targeting the religion.
func (s *InMemory) ListInvitesFor(_ context.Context, religionID id.ReligionID) ([]*models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Invite
	for _, invite := range s.invites {
		if invite.ReligionID == religionID {
			cp := *invite
			out = append(out, &cp)
		}
	}
	return out, nil
}

// DeleteInvite removes the invite, returning its final state.
func (s *InMemory) DeleteInvite(_ context.Context, inviteID id.InviteID) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[inviteID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.invites, inviteID)
	return invite, nil
}

// DeleteInvitesForReligion removes every invite targeting the religion.
// Used when a religion is deleted or joins a civilization.
func (s *InMemory) DeleteInvitesForReligion(_ context.Context, religionID id.ReligionID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for inviteID, invite := range s.invites {
		if invite.ReligionID == religionID {
			delete(s.invites, inviteID)
			removed++
		}
	}
	return removed
}

// SweepExpiredInvites purges invites past their expiry.
func (s *InMemory) SweepExpiredInvites(_ context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for inviteID, invite := range s.invites {
		if !invite.Valid(now) {
			delete(s.invites, inviteID)
			removed++
		}
	}
	return removed
}

// IDs returns every civilization ID. The sweeper iterates this list and
// takes the lock per item rather than holding it across the whole table.
func (s *InMemory) IDs(_ context.Context) []id.CivilizationID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.CivilizationID, 0, len(s.civilizations))
	for civID := range s.civilizations {
		out = append(out, civID)
	}
	return out
}

// Invites returns snapshots of every live invite, for persistence.
func (s *InMemory) Invites(_ context.Context) []*models.Invite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Invite, 0, len(s.invites))
	for _, invite := range s.invites {
		cp := *invite
		out = append(out, &cp)
	}
	return out
}

// Hydrate loads a persisted aggregate, rebuilding indexes. Used at startup.
func (s *InMemory) Hydrate(_ context.Context, civ *models.Civilization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.civilizations[civ.ID] = civ
	s.resyncIndexes(civ)
}

// HydrateInvite loads a persisted invite. Used at startup after Hydrate.
func (s *InMemory) HydrateInvite(_ context.Context, invite *models.Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites[invite.ID] = invite
}

// resyncIndexes rebuilds the religion and name index entries for one
// aggregate after a mutation. Caller holds the write lock.
func (s *InMemory) resyncIndexes(civ *models.Civilization) {
	for religion, owner := range s.religionIndex {
		if owner == civ.ID {
			delete(s.religionIndex, religion)
		}
	}
	for _, religion := range civ.Religions {
		s.religionIndex[religion] = civ.ID
	}
	for key, owner := range s.nameIndex {
		if owner == civ.ID && key != strings.ToLower(civ.Name) {
			delete(s.nameIndex, key)
		}
	}
	s.nameIndex[strings.ToLower(civ.Name)] = civ.ID
}
