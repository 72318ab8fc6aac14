package presence

import (
	"context"
	"sync"

	id "pantheon/pkg/domain"
)

// InMemory is the test and single-node implementation of Resolver.
type InMemory struct {
	mu     sync.RWMutex
	names  map[id.PlayerID]string
	online map[id.PlayerID]struct{}
}

// NewInMemory constructs an empty in-memory resolver.
func NewInMemory() *InMemory {
	return &InMemory{
		names:  make(map[id.PlayerID]string),
		online: make(map[id.PlayerID]struct{}),
	}
}

// SetDisplayName records a player's display name.
func (r *InMemory) SetDisplayName(player id.PlayerID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[player] = name
}

// SetOnline marks a player as connected or disconnected.
func (r *InMemory) SetOnline(player id.PlayerID, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if online {
		r.online[player] = struct{}{}
	} else {
		delete(r.online, player)
	}
}

func (r *InMemory) DisplayName(_ context.Context, player id.PlayerID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.names[player]; ok {
		return name
	}
	return string(player)
}

func (r *InMemory) Online(_ context.Context) []id.PlayerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]id.PlayerID, 0, len(r.online))
	for player := range r.online {
		players = append(players, player)
	}
	return players
}
