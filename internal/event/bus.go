package event

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nireus79/Socrates-sub009/internal/metrics"
)

// Listener handles a dispatched event. An error return is logged at the
// bus boundary and never reaches the emitter.
type Listener func(ctx context.Context, ev Event) error

// Bus is a synchronous publish/subscribe dispatcher. Listeners for a kind
// run in registration order, in the emitter's goroutine. A slow listener
// therefore delays the emitter; that is an accepted property of the design.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Kind][]Listener

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewBus creates an empty bus. metrics may be nil.
func NewBus(logger zerolog.Logger, m *metrics.Metrics) *Bus {
	return &Bus{
		listeners: make(map[Kind][]Listener),
		logger:    logger.With().Str("component", "event.bus").Logger(),
		metrics:   m,
	}
}

// Register adds a listener for the given kind. Multiple listeners per kind
// are invoked in registration order.
func (b *Bus) Register(kind Kind, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[kind] = append(b.listeners[kind], l)
}

// Emit dispatches payload to every listener registered for its kind.
// Dispatch is synchronous and fault-isolated: a listener error or panic is
// caught and logged here, never propagated to the caller. Emitting with no
// listeners registered is a silent no-op (delivery is best-effort).
func (b *Bus) Emit(ctx context.Context, payload Payload) {
	kind := payload.EventKind()
	ev := Event{
		Kind:      kind,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}

	b.mu.RLock()
	targets := make([]Listener, len(b.listeners[kind]))
	copy(targets, b.listeners[kind])
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.RecordEvent(string(kind))
	}

	for _, l := range targets {
		b.dispatch(ctx, l, ev)
	}
}

// ListenerCount returns the number of listeners registered for kind.
func (b *Bus) ListenerCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}

func (b *Bus) dispatch(ctx context.Context, l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.RecordListenerError(string(ev.Kind))
			}
			b.logger.Error().
				Str("kind", string(ev.Kind)).
				Interface("panic", r).
				Msg("listener panicked")
		}
	}()

	if err := l(ctx, ev); err != nil {
		if b.metrics != nil {
			b.metrics.RecordListenerError(string(ev.Kind))
		}
		b.logger.Error().
			Err(err).
			Str("kind", string(ev.Kind)).
			Msg("listener failed")
	}
}
