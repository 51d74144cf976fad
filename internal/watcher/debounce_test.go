package watcher

import (
	"sync"
	"testing"
	"time"

	"filesentry/internal/event"
)

func TestDebouncerSuppressesWithinWindow(t *testing.T) {
	debouncer := newDebouncer(100*time.Millisecond, 0)
	key := debounceKey{action: event.ActionModified, path: "/tmp/a"}
	start := time.Now()

	if debouncer.shouldSuppress(key, start) {
		t.Fatal("first event should be accepted")
	}
	if !debouncer.shouldSuppress(key, start.Add(50*time.Millisecond)) {
		t.Fatal("second event inside window should be suppressed")
	}
	// Suppression leaves the recorded time unchanged.
	if debouncer.shouldSuppress(key, start.Add(100*time.Millisecond)) {
		t.Fatal("event at the window edge should be accepted")
	}
	if !debouncer.shouldSuppress(key, start.Add(150*time.Millisecond)) {
		t.Fatal("event inside the renewed window should be suppressed")
	}
}

func TestDebouncerKeysByActionAndPath(t *testing.T) {
	debouncer := newDebouncer(time.Second, 0)
	now := time.Now()

	debouncer.shouldSuppress(debounceKey{action: event.ActionModified, path: "/tmp/a"}, now)
	if debouncer.shouldSuppress(debounceKey{action: event.ActionDeleted, path: "/tmp/a"}, now) {
		t.Fatal("different action should not be suppressed")
	}
	if debouncer.shouldSuppress(debounceKey{action: event.ActionModified, path: "/tmp/b"}, now) {
		t.Fatal("different path should not be suppressed")
	}
}

func TestDebouncerDisabledWindow(t *testing.T) {
	for _, window := range []time.Duration{0, -time.Second} {
		debouncer := newDebouncer(window, 0)
		key := debounceKey{action: event.ActionCreated, path: "/tmp/a"}
		now := time.Now()
		for i := 0; i < 3; i++ {
			if debouncer.shouldSuppress(key, now) {
				t.Fatalf("window %v should never suppress", window)
			}
		}
		if debouncer.len() != 0 {
			t.Fatalf("disabled debouncer should keep no state, got %d", debouncer.len())
		}
	}
}

func TestDebouncerEvictsLeastRecentlyUsed(t *testing.T) {
	debouncer := newDebouncer(time.Hour, 2)
	now := time.Now()
	a := debounceKey{action: event.ActionModified, path: "/a"}
	b := debounceKey{action: event.ActionModified, path: "/b"}
	c := debounceKey{action: event.ActionModified, path: "/c"}

	debouncer.shouldSuppress(a, now)
	debouncer.shouldSuppress(b, now)
	debouncer.shouldSuppress(c, now)

	if debouncer.len() != 2 {
		t.Fatalf("expected bounded state of 2, got %d", debouncer.len())
	}
	if debouncer.shouldSuppress(a, now) {
		t.Fatal("evicted key should be accepted again")
	}
}

func TestDebouncerConcurrentSameKey(t *testing.T) {
	debouncer := newDebouncer(time.Hour, 0)
	key := debounceKey{action: event.ActionModified, path: "/tmp/hot"}
	now := time.Now()

	var accepted int
	var mutex sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !debouncer.shouldSuppress(key, now) {
				mutex.Lock()
				accepted++
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("expected exactly one acceptance, got %d", accepted)
	}
}
