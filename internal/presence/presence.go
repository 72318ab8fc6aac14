// Package presence is the identity & presence port. The core consumes it for
// display names and broadcast targeting only; correctness never depends on
// it, so every method is best-effort.
package presence

import (
	"context"

	id "pantheon/pkg/domain"
)

// Resolver resolves player identity and presence facts.
type Resolver interface {
	// DisplayName resolves a player ID to a display name. Returns the raw
	// ID when no name is known.
	DisplayName(ctx context.Context, player id.PlayerID) string
	// Online lists the players currently connected.
	Online(ctx context.Context) []id.PlayerID
}
