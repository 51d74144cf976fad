// Package queue provides the FIFO that decouples the filesystem watcher from
// the scoring pipeline.
package queue

import (
	"sync"
	"time"
)

// Queue is a thread-safe FIFO. A positive capacity bounds it and Push drops
// the newest value when full; capacity 0 means unbounded.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	dropped  uint64
	notify   chan struct{}
}

func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push appends value without blocking. It returns false when the queue is full
// and the value was dropped.
func (q *Queue[T]) Push(value T) bool {
	q.mu.Lock()
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.dropped++
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, value)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest value, waiting up to timeout for one to arrive.
// A timeout <= 0 polls without waiting.
func (q *Queue[T]) Pop(timeout time.Duration) (T, bool) {
	if value, ok := q.tryPop(); ok || timeout <= 0 {
		return value, ok
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			if value, ok := q.tryPop(); ok {
				return value, true
			}
		case <-timer.C:
			return q.tryPop()
		}
	}
}

func (q *Queue[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	value := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// Wake another waiter for the remaining items.
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return value, true
}

// DrainAll removes up to limit values in FIFO order; limit <= 0 drains all.
func (q *Queue[T]) DrainAll(limit int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := len(q.items)
	if limit > 0 && limit < count {
		count = limit
	}
	if count == 0 {
		return nil
	}
	out := make([]T, count)
	copy(out, q.items[:count])
	var zero T
	for i := 0; i < count; i++ {
		q.items[i] = zero
	}
	q.items = q.items[count:]
	return out
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Dropped reports how many values Push rejected.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
