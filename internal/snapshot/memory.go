package snapshot

import (
	"context"
	"sync"

	"pantheon/pkg/platform/sentinel"
)

type blobKey struct {
	kind Kind
	id   string
}

// InMemory keeps snapshots in a map for tests and single-node runs.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[blobKey]Blob
}

// NewInMemory constructs an empty in-memory snapshot store.
func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[blobKey]Blob)}
}

func (s *InMemory) Save(_ context.Context, blob Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := blob
	stored.Data = append([]byte(nil), blob.Data...)
	s.blobs[blobKey{kind: blob.Kind, id: blob.ID}] = stored
	return nil
}

func (s *InMemory) Load(_ context.Context, kind Kind, id string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if blob, ok := s.blobs[blobKey{kind: kind, id: id}]; ok {
		out := blob
		out.Data = append([]byte(nil), blob.Data...)
		return out, nil
	}
	return Blob{}, sentinel.ErrNotFound
}

func (s *InMemory) LoadAll(_ context.Context, kind Kind) ([]Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Blob
	for key, blob := range s.blobs {
		if key.kind != kind {
			continue
		}
		copied := blob
		copied.Data = append([]byte(nil), blob.Data...)
		out = append(out, copied)
	}
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, blobKey{kind: kind, id: id})
	return nil
}
