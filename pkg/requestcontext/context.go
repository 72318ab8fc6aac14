// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets domain code import only what it needs.
//
// Usage in services:
//
//	actor := requestcontext.ActorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActorID(ctx, "steve")
package requestcontext

import (
	"context"
	"time"

	id "pantheon/pkg/domain"
)

type (
	actorIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// ActorID retrieves the acting player ID from the context. Returns the empty
// value if no actor was attached; services must treat that as unauthorized
// for any permission-checked call.
func ActorID(ctx context.Context) id.PlayerID {
	if actor, ok := ctx.Value(actorIDKey{}).(id.PlayerID); ok {
		return actor
	}
	return ""
}

// WithActorID injects the acting player ID into the context.
func WithActorID(ctx context.Context, actor id.PlayerID) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actor)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped UTC instant from the context. Falls back
// to time.Now for non-HTTP contexts like the sweeper and tests that do not
// pin time. All expiry math uses absolute UTC timestamps so persisted state
// survives restarts without drift.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// WithTime pins the request-scoped instant. Used by middleware so one
// request observes one consistent time, and by tests to control expiry.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t.UTC())
}
