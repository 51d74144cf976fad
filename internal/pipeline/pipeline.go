// Package pipeline consumes queued events, scores them and hands them to the
// notification manager on a single goroutine.
package pipeline

import (
	"context"
	"errors"
	"strconv"
	"time"

	"filesentry/internal/event"
	"filesentry/internal/logging"
	"filesentry/internal/metrics"
	"filesentry/internal/notify"
	"filesentry/internal/queue"
	"filesentry/internal/scoring"
)

const DefaultPollInterval = 200 * time.Millisecond

type Options struct {
	Queue        *queue.Queue[event.Normalized]
	Engine       *scoring.Engine
	Manager      *notify.Manager
	Logger       *logging.Logger
	Metrics      *metrics.Registry
	PollInterval time.Duration
}

type Pipeline struct {
	queue        *queue.Queue[event.Normalized]
	engine       *scoring.Engine
	manager      *notify.Manager
	logger       *logging.Logger
	metrics      *metrics.Registry
	pollInterval time.Duration
}

func New(options Options) (*Pipeline, error) {
	if options.Queue == nil {
		return nil, errors.New("pipeline: queue is required")
	}
	if options.Engine == nil {
		return nil, errors.New("pipeline: scoring engine is required")
	}
	if options.Manager == nil {
		return nil, errors.New("pipeline: notification manager is required")
	}
	interval := options.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Pipeline{
		queue:        options.Queue,
		engine:       options.Engine,
		manager:      options.Manager,
		logger:       options.Logger.With(map[string]string{logging.CategoryKey: "pipeline"}),
		metrics:      options.Metrics,
		pollInterval: interval,
	}, nil
}

// Run processes events until ctx is cancelled, then drains whatever is still
// queued and returns nil. Sinks see the drained events with a context that is
// no longer cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", map[string]string{
		"poll_interval": p.pollInterval.String(),
	})
	for {
		select {
		case <-ctx.Done():
			drained := p.drain(context.WithoutCancel(ctx))
			p.logger.Info("pipeline stopped", map[string]string{
				"drained": strconv.Itoa(drained),
			})
			return nil
		default:
		}

		normalized, ok := p.queue.Pop(p.pollInterval)
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			// Popped while shutting down; deliver it like a drained event.
			p.Process(context.WithoutCancel(ctx), normalized)
			continue
		}
		p.Process(ctx, normalized)
	}
}

// Process scores and notifies one event.
func (p *Pipeline) Process(ctx context.Context, normalized event.Normalized) event.Scored {
	p.metrics.SetQueueDepth(p.queue.Len())
	scored := p.engine.Score(normalized)
	p.metrics.IncScored(scored.Level.String())
	p.logger.Debug("event scored", map[string]string{
		"path":   scored.Path,
		"action": string(scored.Action),
		"score":  strconv.Itoa(scored.Score),
		"level":  scored.Level.String(),
	})
	p.manager.Notify(ctx, scored)
	return scored
}

func (p *Pipeline) drain(ctx context.Context) int {
	count := 0
	for _, normalized := range p.queue.DrainAll(0) {
		p.Process(ctx, normalized)
		count++
	}
	return count
}
