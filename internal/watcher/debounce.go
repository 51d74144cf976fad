package watcher

import (
	"sync"
	"time"

	"filesentry/internal/event"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type debounceKey struct {
	action event.Action
	path   string
}

// debouncer remembers the last accepted time per (action, path). The LRU
// bound evicts keys for paths that stopped changing.
type debouncer struct {
	window time.Duration
	mutex  sync.Mutex
	seen   *simplelru.LRU[debounceKey, time.Time]
}

func newDebouncer(window time.Duration, capacity int) *debouncer {
	if capacity <= 0 {
		capacity = DefaultDebounceCapacity
	}
	seen, err := simplelru.NewLRU[debounceKey, time.Time](capacity, nil)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &debouncer{window: window, seen: seen}
}

// shouldSuppress reports whether key was accepted less than the window before
// now. Accepting records now; suppressing leaves the state unchanged. now must
// carry a monotonic reading.
func (debouncer *debouncer) shouldSuppress(key debounceKey, now time.Time) bool {
	if debouncer == nil || debouncer.window <= 0 {
		return false
	}
	debouncer.mutex.Lock()
	defer debouncer.mutex.Unlock()

	if previous, ok := debouncer.seen.Get(key); ok && now.Sub(previous) < debouncer.window {
		return true
	}
	debouncer.seen.Add(key, now)
	return false
}

func (debouncer *debouncer) len() int {
	if debouncer == nil {
		return 0
	}
	debouncer.mutex.Lock()
	defer debouncer.mutex.Unlock()
	return debouncer.seen.Len()
}
