package watcher

import (
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type fakeBackend struct {
	events chan fsnotify.Event
	errors chan error

	mutex   sync.Mutex
	added   []string
	removed []string
	failAdd map[string]error
	closed  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		events:  make(chan fsnotify.Event, 16),
		errors:  make(chan error, 4),
		failAdd: map[string]error{},
	}
}

func (b *fakeBackend) Add(path string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if err := b.failAdd[path]; err != nil {
		return err
	}
	b.added = append(b.added, path)
	return nil
}

func (b *fakeBackend) Remove(path string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.removed = append(b.removed, path)
	return nil
}

func (b *fakeBackend) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return errors.New("already closed")
	}
	b.closed = true
	close(b.events)
	close(b.errors)
	return nil
}

func (b *fakeBackend) Events() <-chan fsnotify.Event { return b.events }
func (b *fakeBackend) Errors() <-chan error          { return b.errors }

func (b *fakeBackend) addedPaths() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]string(nil), b.added...)
}

// fakeFactory hands out a fresh backend per Start and remembers them.
type fakeFactory struct {
	mutex    sync.Mutex
	backends []*fakeBackend
	prepare  func(*fakeBackend)
}

func (f *fakeFactory) create() (backend, error) {
	b := newFakeBackend()
	if f.prepare != nil {
		f.prepare(b)
	}
	f.mutex.Lock()
	f.backends = append(f.backends, b)
	f.mutex.Unlock()
	return b, nil
}

func (f *fakeFactory) last() *fakeBackend {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if len(f.backends) == 0 {
		return nil
	}
	return f.backends[len(f.backends)-1]
}
