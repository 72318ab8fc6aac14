package civilization

import (
	"log/slog"

	"pantheon/internal/civilization/handler"
	"pantheon/internal/civilization/service"
	"pantheon/internal/civilization/store"
)

// Service exposes civilization lifecycle, membership, and invite orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the civilization service.
type Handler = handler.Handler

// Store is the in-memory civilization aggregate store.
type Store = store.InMemory

// NewStore constructs the in-memory civilization store.
func NewStore() *Store {
	return store.NewInMemory()
}

// NewService constructs the civilization service with required dependencies.
func NewService(civs service.CivilizationStore, religions service.ReligionDirectory, bus service.EventPublisher, opts ...service.Option) *Service {
	return service.New(civs, religions, bus, opts...)
}

// NewHandler constructs an HTTP handler for civilization routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
