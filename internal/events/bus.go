package events

import (
	"context"
	"sync"
	"time"

	"pantheon/internal/platform/metrics"
)

// Handler receives a published event. Handlers must not call back into the
// publishing aggregate's mutating API from the same goroutine while holding
// any aggregate lock; publishers guarantee their own lock is released first.
type Handler func(ctx context.Context, event Event)

// Bus dispatches domain events to registered handlers synchronously and in
// registration order. Registration happens at wiring time in cmd/server, so
// the handler list is effectively read-only after startup; the mutex only
// guards the rare concurrent-subscribe case in tests.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	metrics  *metrics.Metrics
}

// Option configures a Bus.
type Option func(*Bus)

// WithMetrics records published events on the process metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// NewBus constructs an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for every event.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every handler in order. It stamps the event
// time if the publisher left it zero.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.IncrementEventPublished(string(event.Kind))
	}
	for _, h := range handlers {
		h(ctx, event)
	}
}
