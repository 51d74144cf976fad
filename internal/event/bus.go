package event

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"filesentry/internal/logging"
	"filesentry/internal/metrics"
)

const (
	defaultSubscriberBufferSize = 128
	defaultDropWarningThreshold = 0.01
	defaultDropWarningInterval  = 30 * time.Second
)

type BusOptions struct {
	Name                 string
	SubscriberBufferSize int
	// MaxSubscribers <= 0 means no limit.
	MaxSubscribers int
	// A warning is logged when dropped/published reaches the threshold, at
	// most once per interval.
	DropWarningThreshold float64
	DropWarningInterval  time.Duration
	Registry             *metrics.Registry
	Logger               *logging.Logger
}

// Bus is a non-blocking publish/subscribe fan-out. A subscriber whose buffer
// is full misses the event; publishers never wait on subscribers.
//
// Sends happen under the read lock and channels are closed under the write
// lock, so a send can never hit a closed channel.
type Bus[T any] struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber[T]
	nextID      atomic.Uint64
	closed      bool
	closeOnce   sync.Once

	name       string
	bufferSize int
	maxSubs    int
	registry   *metrics.Registry
	logger     *logging.Logger
	drops      dropWarner
}

type subscriber[T any] struct {
	ch     chan T
	filter func(T) bool
}

type typedEvent interface {
	Type() string
}

// NewBus returns a bus that closes itself when ctx is done.
func NewBus[T any](ctx context.Context, opts BusOptions) *Bus[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Name == "" {
		opts.Name = "event_bus"
	}
	if opts.SubscriberBufferSize <= 0 {
		opts.SubscriberBufferSize = defaultSubscriberBufferSize
	}
	if opts.DropWarningThreshold <= 0 {
		opts.DropWarningThreshold = defaultDropWarningThreshold
	}
	if opts.DropWarningInterval <= 0 {
		opts.DropWarningInterval = defaultDropWarningInterval
	}
	registry := opts.Registry
	if registry == nil {
		registry = metrics.Default
	}
	bus := &Bus[T]{
		subscribers: make(map[uint64]*subscriber[T]),
		name:        opts.Name,
		bufferSize:  opts.SubscriberBufferSize,
		maxSubs:     opts.MaxSubscribers,
		registry:    registry,
		logger:      opts.Logger.With(map[string]string{logging.CategoryKey: "bus", "bus": opts.Name}),
		drops: dropWarner{
			threshold: opts.DropWarningThreshold,
			interval:  opts.DropWarningInterval,
		},
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			bus.Close()
		}()
	}
	return bus
}

func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	return b.SubscribeFiltered(nil)
}

// SubscribeFiltered only delivers events the filter accepts. A filter that
// panics is unsubscribed. On a closed or full bus the returned channel is
// already closed.
func (b *Bus[T]) SubscribeFiltered(filter func(T) bool) (<-chan T, func()) {
	if b == nil {
		return closedChan[T](), func() {}
	}

	b.mu.Lock()
	if b.closed || (b.maxSubs > 0 && len(b.subscribers) >= b.maxSubs) {
		b.mu.Unlock()
		return closedChan[T](), func() {}
	}
	id := b.nextID.Add(1)
	sub := &subscriber[T]{ch: make(chan T, b.bufferSize), filter: filter}
	b.subscribers[id] = sub
	count := len(b.subscribers)
	b.mu.Unlock()

	b.registry.SetBusSubscribers(b.name, count)
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

// Publish hands event to every matching subscriber with room in its buffer
// and returns how many received it.
func (b *Bus[T]) Publish(event T) int {
	if b == nil {
		return 0
	}
	eventType := eventTypeOf(event)

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0
	}
	b.drops.published.Add(1)
	b.registry.IncBusPublished(b.name, eventType)

	delivered := 0
	dropped := false
	var broken []uint64
	for id, sub := range b.subscribers {
		allowed, ok := applyFilter(sub.filter, event)
		if !ok {
			broken = append(broken, id)
			continue
		}
		if !allowed {
			continue
		}
		select {
		case sub.ch <- event:
			delivered++
		default:
			dropped = true
			b.drops.dropped.Add(1)
			b.registry.IncBusDropped(b.name, eventType)
		}
	}
	b.mu.RUnlock()

	for _, id := range broken {
		b.logger.Warn("subscriber filter panicked", nil)
		b.unsubscribe(id)
	}
	if dropped {
		b.drops.maybeWarn(b.logger, time.Now())
	}
	return delivered
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (b *Bus[T]) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		for id, sub := range b.subscribers {
			close(sub.ch)
			delete(b.subscribers, id)
		}
		b.mu.Unlock()
		b.registry.SetBusSubscribers(b.name, 0)
	})
}

func (b *Bus[T]) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *Bus[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
	count := len(b.subscribers)
	b.mu.Unlock()
	if ok {
		b.registry.SetBusSubscribers(b.name, count)
	}
}

// applyFilter reports ok=false when the filter panicked.
func applyFilter[T any](filter func(T) bool, event T) (allowed bool, ok bool) {
	if filter == nil {
		return true, true
	}
	defer func() {
		if recover() != nil {
			allowed, ok = false, false
		}
	}()
	return filter(event), true
}

func eventTypeOf[T any](event T) string {
	if typed, ok := any(event).(typedEvent); ok {
		if value := typed.Type(); value != "" {
			return value
		}
	}
	return "unknown"
}

func closedChan[T any]() chan T {
	ch := make(chan T)
	close(ch)
	return ch
}

type dropWarner struct {
	threshold float64
	interval  time.Duration
	published atomic.Int64
	dropped   atomic.Int64
	last      atomic.Int64
}

func (w *dropWarner) maybeWarn(logger *logging.Logger, now time.Time) {
	published := w.published.Load()
	dropped := w.dropped.Load()
	if published == 0 || float64(dropped)/float64(published) < w.threshold {
		return
	}
	last := w.last.Load()
	if last > 0 && now.Sub(time.Unix(0, last)) < w.interval {
		return
	}
	if !w.last.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	logger.Warn("event bus dropping events", map[string]string{
		"dropped":   strconv.FormatInt(dropped, 10),
		"published": strconv.FormatInt(published, 10),
	})
}
