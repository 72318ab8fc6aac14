package milestone

import (
	"log/slog"

	"pantheon/internal/milestone/handler"
	"pantheon/internal/milestone/service"
	"pantheon/internal/milestone/store"
)

// Service exposes the milestone engine.
type Service = service.Service

// Handler wires HTTP endpoints to the milestone engine.
type Handler = handler.Handler

// Store is the in-memory milestone state store.
type Store = store.InMemory

// NewStore constructs the in-memory milestone store.
func NewStore() *Store {
	return store.NewInMemory()
}

// NewService constructs the milestone engine with required dependencies.
func NewService(s service.MilestoneStore, civs service.CivilizationDirectory, religions service.ReligionDirectory, rewards service.PrestigeAwarder, bus service.EventPublisher, opts ...service.Option) *Service {
	return service.New(s, civs, religions, rewards, bus, opts...)
}

// NewHandler constructs an HTTP handler for milestone routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
