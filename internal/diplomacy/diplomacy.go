package diplomacy

import (
	"log/slog"

	"pantheon/internal/diplomacy/handler"
	"pantheon/internal/diplomacy/service"
	"pantheon/internal/diplomacy/store"
)

// Service exposes the diplomacy state machine and sweep.
type Service = service.Service

// Handler wires HTTP endpoints to the diplomacy service.
type Handler = handler.Handler

// Store is the in-memory relationship/proposal table.
type Store = store.InMemory

// NewStore constructs the in-memory diplomacy store.
func NewStore() *Store {
	return store.NewInMemory()
}

// NewService constructs the diplomacy service with required dependencies.
func NewService(s service.DiplomacyStore, civs service.CivilizationDirectory, bus service.EventPublisher, opts ...service.Option) *Service {
	return service.New(s, civs, bus, opts...)
}

// NewHandler constructs an HTTP handler for diplomacy routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
