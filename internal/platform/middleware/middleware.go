// Package middleware holds the shared chi middleware chain. Handlers mount
// Recovery → RequestID → RequestTime → Logger → ContentTypeJSON →
// ActingPlayer in that order.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// PlayerHeader carries the acting player's opaque ID. Authorization input is
// always explicit; the core never infers a "current player" from ambient
// state.
const PlayerHeader = "X-Player-ID"

// RequestID assigns a correlation ID to each request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime pins one UTC instant per request so every expiry check in a
// single call observes the same clock.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger logs each request with its correlation ID and latency.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// Recovery converts panics into 500 responses so a programming error
// terminates only the failing call, not the process.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "handler panic",
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON stamps JSON on every response.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ActingPlayer extracts the acting player from the player header and injects
// it into the request context. An absent header passes through; handlers
// reject mutations that arrive without an actor. A malformed header is
// always rejected.
func ActingPlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(PlayerHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := id.ParsePlayerID(raw)
		if err != nil {
			WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "acting player header is invalid"))
			return
		}
		ctx := requestcontext.WithActorID(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WriteError translates a coded domain error into the shared JSON error
// envelope. Uncoded errors become 500s with no detail leaked.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  string(code),
		"reason": dErrors.Reason(err),
	})
}

// WriteJSON writes a success payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
