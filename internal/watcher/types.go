package watcher

import (
	"errors"
	"time"

	"filesentry/internal/event"
	"filesentry/internal/logging"
	"filesentry/internal/metrics"
	"filesentry/internal/queue"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce         = 150 * time.Millisecond
	DefaultDebounceCapacity = 4096
	DefaultStopTimeout      = 5 * time.Second
)

var (
	ErrNoRoots      = errors.New("at least one root directory is required")
	ErrNotDirectory = errors.New("root is not a directory")
	ErrStopTimeout  = errors.New("watcher did not stop in time")
)

// Callback receives every accepted event on the watcher goroutine. Returned
// errors and panics are logged and counted; they never stop the watcher.
type Callback func(event.Normalized) error

// Options controls watcher behavior.
type Options struct {
	Roots             []string
	Recursive         bool
	IgnoreDirectories bool
	// Debounce <= 0 disables suppression.
	Debounce         time.Duration
	DebounceCapacity int
	Queue            *queue.Queue[event.Normalized]
	Callback         Callback
	Logger           *logging.Logger
	Metrics          *metrics.Registry
	StopTimeout      time.Duration

	newBackend func() (backend, error)
	now        func() time.Time
}

// rawEvent is one backend notification before normalization.
type rawEvent struct {
	Path  string
	Op    fsnotify.Op
	IsDir bool
}

type backend interface {
	Add(path string) error
	Remove(path string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyBackend struct {
	watcher *fsnotify.Watcher
}

func newFSNotifyBackend() (backend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsnotifyBackend{watcher: watcher}, nil
}

func (b *fsnotifyBackend) Add(path string) error         { return b.watcher.Add(path) }
func (b *fsnotifyBackend) Remove(path string) error      { return b.watcher.Remove(path) }
func (b *fsnotifyBackend) Close() error                  { return b.watcher.Close() }
func (b *fsnotifyBackend) Events() <-chan fsnotify.Event { return b.watcher.Events }
func (b *fsnotifyBackend) Errors() <-chan error          { return b.watcher.Errors }

// classify maps a backend op to an action. Create wins over the other bits
// when the backend reports several at once.
func classify(op fsnotify.Op) (event.Action, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return event.ActionCreated, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return event.ActionDeleted, true
	case op.Has(fsnotify.Write), op.Has(fsnotify.Chmod):
		return event.ActionModified, true
	default:
		return "", false
	}
}
