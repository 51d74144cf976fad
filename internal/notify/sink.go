// Package notify fans scored events out to alert sinks filtered by severity.
package notify

import (
	"context"
	"sync"

	"filesentry/internal/event"
)

// Sink delivers one scored event to a destination.
type Sink interface {
	Deliver(ctx context.Context, scored event.Scored) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, scored event.Scored) error

func (fn SinkFunc) Deliver(ctx context.Context, scored event.Scored) error {
	return fn(ctx, scored)
}

// MemorySink records deliveries in order. SetError makes every following
// delivery fail after being recorded.
type MemorySink struct {
	mu     sync.Mutex
	events []event.Scored
	err    error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (sink *MemorySink) Deliver(_ context.Context, scored event.Scored) error {
	if sink == nil {
		return nil
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.events = append(sink.events, scored)
	return sink.err
}

func (sink *MemorySink) Events() []event.Scored {
	if sink == nil {
		return nil
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	events := make([]event.Scored, len(sink.events))
	copy(events, sink.events)
	return events
}

func (sink *MemorySink) SetError(err error) {
	if sink == nil {
		return
	}
	sink.mu.Lock()
	sink.err = err
	sink.mu.Unlock()
}
