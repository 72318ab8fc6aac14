package religion

import (
	"log/slog"

	"pantheon/internal/religion/handler"
	"pantheon/internal/religion/service"
	"pantheon/internal/religion/store"
)

// Service exposes religion membership, role, and prestige orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the religion service.
type Handler = handler.Handler

// Store is the in-memory religion aggregate store.
type Store = store.InMemory

// NewStore constructs the in-memory religion store.
func NewStore() *Store {
	return store.NewInMemory()
}

// NewService constructs the religion service with required dependencies.
func NewService(religions service.ReligionStore, bus service.EventPublisher, opts ...service.Option) *Service {
	return service.New(religions, bus, opts...)
}

// NewHandler constructs an HTTP handler for religion routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
