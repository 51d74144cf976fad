package notify

import (
	"context"
	"errors"

	"filesentry/internal/event"
)

// StreamSink publishes events on an in-process bus for live subscribers such
// as websocket clients. Slow subscribers lose events; delivery never blocks.
type StreamSink struct {
	bus *event.Bus[event.Scored]
}

func NewStreamSink(bus *event.Bus[event.Scored]) *StreamSink {
	return &StreamSink{bus: bus}
}

func (sink *StreamSink) Deliver(ctx context.Context, scored event.Scored) error {
	if sink == nil || sink.bus == nil {
		return errors.New("stream sink has no bus")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sink.bus.Publish(scored)
	return nil
}
