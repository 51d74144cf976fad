package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"filesentry/internal/event"
	"filesentry/internal/fsutil"
	"filesentry/internal/logging"
	"filesentry/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// PathWatcher observes a fixed set of root directories.
type PathWatcher struct {
	roots      []string
	options    Options
	logger     *logging.Logger
	metrics    *metrics.Registry
	debouncer  *debouncer
	newBackend func() (backend, error)
	now        func() time.Time

	mutex   sync.Mutex
	backend backend
	done    chan struct{}
	running bool
	// dirs holds canonical paths of watched directories so remove events,
	// which cannot be stat'ed, can still be classified as directories.
	dirs map[string]struct{}
}

// New validates every root before any backend subscription is made.
func New(options Options) (*PathWatcher, error) {
	if len(options.Roots) == 0 {
		return nil, ErrNoRoots
	}
	roots := make([]string, 0, len(options.Roots))
	seen := make(map[string]struct{}, len(options.Roots))
	for _, root := range options.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotDirectory, root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotDirectory, root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
		}
		abs = filepath.Clean(abs)
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		roots = append(roots, abs)
	}

	if options.StopTimeout <= 0 {
		options.StopTimeout = DefaultStopTimeout
	}
	newBackend := options.newBackend
	if newBackend == nil {
		newBackend = newFSNotifyBackend
	}
	now := options.now
	if now == nil {
		now = time.Now
	}

	return &PathWatcher{
		roots:      roots,
		options:    options,
		logger:     options.Logger.With(map[string]string{logging.CategoryKey: "watcher"}),
		metrics:    options.Metrics,
		debouncer:  newDebouncer(options.Debounce, options.DebounceCapacity),
		newBackend: newBackend,
		now:        now,
	}, nil
}

// Roots returns the canonical root paths.
func (watcher *PathWatcher) Roots() []string {
	out := make([]string, 0, len(watcher.roots))
	for _, root := range watcher.roots {
		out = append(out, filepath.ToSlash(root))
	}
	return out
}

func (watcher *PathWatcher) Running() bool {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.running
}

// Start subscribes to the backend and launches the worker goroutine. Calling
// Start on a running watcher is a no-op.
func (watcher *PathWatcher) Start() error {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	if watcher.running {
		return nil
	}

	backend, err := watcher.newBackend()
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	watcher.dirs = make(map[string]struct{})
	for _, root := range watcher.roots {
		if err := watcher.watchTreeLocked(backend, root, true); err != nil {
			_ = backend.Close()
			watcher.dirs = nil
			return err
		}
	}

	watcher.backend = backend
	watcher.done = make(chan struct{})
	watcher.running = true
	go watcher.loop(backend, watcher.done)

	watcher.logger.Info("watcher started", map[string]string{
		"roots":     strings.Join(watcher.Roots(), ","),
		"recursive": fmt.Sprintf("%t", watcher.options.Recursive),
		"watches":   fmt.Sprintf("%d", len(watcher.dirs)),
	})
	return nil
}

// Stop closes the backend and waits up to StopTimeout for the worker to exit.
// In-flight callbacks are not interrupted. Stop on a stopped watcher is a
// no-op.
func (watcher *PathWatcher) Stop() error {
	watcher.mutex.Lock()
	if !watcher.running {
		watcher.mutex.Unlock()
		return nil
	}
	backend := watcher.backend
	done := watcher.done
	watcher.backend = nil
	watcher.running = false
	watcher.mutex.Unlock()

	closeErr := backend.Close()

	timer := time.NewTimer(watcher.options.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		watcher.logger.Warn("watcher stop timed out", map[string]string{
			"timeout": watcher.options.StopTimeout.String(),
		})
		return errors.Join(closeErr, ErrStopTimeout)
	}

	watcher.logger.Info("watcher stopped", nil)
	if closeErr != nil {
		return fmt.Errorf("close backend: %w", closeErr)
	}
	return nil
}

func (watcher *PathWatcher) loop(backend backend, done chan struct{}) {
	defer close(done)
	events := backend.Events()
	errs := backend.Errors()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			watcher.handleFSEvent(backend, ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err == nil {
				continue
			}
			watcher.metrics.IncBackendError()
			watcher.logger.Warn("watcher backend error", map[string]string{
				"error": err.Error(),
			})
		}
	}
}

func (watcher *PathWatcher) handleFSEvent(backend backend, ev fsnotify.Event) {
	raw := rawEvent{Path: ev.Name, Op: ev.Op}
	if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		raw.IsDir = watcher.forgetDir(ev.Name)
		if raw.IsDir && ev.Op.Has(fsnotify.Rename) {
			// A renamed directory keeps its kernel watch on some platforms.
			_ = backend.Remove(ev.Name)
		}
	} else {
		raw.IsDir = fsutil.IsDir(ev.Name)
	}

	if raw.IsDir && ev.Op.Has(fsnotify.Create) && watcher.options.Recursive {
		watcher.mutex.Lock()
		if watcher.backend == backend {
			if err := watcher.watchTreeLocked(backend, ev.Name, false); err != nil {
				watcher.logger.Warn("watch new directory failed", map[string]string{
					"path":  ev.Name,
					"error": err.Error(),
				})
			}
		}
		watcher.mutex.Unlock()
	}

	watcher.handleRaw(raw)
}

// handleRaw normalizes, debounces and emits one raw notification.
func (watcher *PathWatcher) handleRaw(raw rawEvent) {
	if raw.IsDir && watcher.options.IgnoreDirectories {
		watcher.metrics.IncIgnored()
		return
	}
	action, ok := classify(raw.Op)
	if !ok {
		return
	}
	path, err := fsutil.CanonicalPath(raw.Path)
	if err != nil {
		watcher.logger.Debug("discarding unresolvable path", map[string]string{
			"path":  raw.Path,
			"error": err.Error(),
		})
		return
	}

	now := watcher.now()
	if watcher.debouncer.shouldSuppress(debounceKey{action: action, path: path}, now) {
		watcher.metrics.IncSuppressed(string(action))
		return
	}
	watcher.metrics.SetDebounceKeys(watcher.debouncer.len())

	normalized := event.Normalized{Time: now.UTC(), Path: path, Action: action}
	watcher.metrics.IncAccepted(string(action))
	watcher.logger.Debug("event accepted", map[string]string{
		"path":   path,
		"action": string(action),
	})
	watcher.enqueue(normalized)
	watcher.invokeCallback(normalized)
}

func (watcher *PathWatcher) enqueue(normalized event.Normalized) {
	q := watcher.options.Queue
	if q == nil {
		return
	}
	if !q.Push(normalized) {
		watcher.metrics.IncQueueDropped()
		watcher.logger.Debug("queue full, event dropped", map[string]string{
			"path":     normalized.Path,
			"action":   string(normalized.Action),
			"capacity": fmt.Sprintf("%d", q.Capacity()),
		})
		return
	}
	watcher.metrics.SetQueueDepth(q.Len())
}

func (watcher *PathWatcher) invokeCallback(normalized event.Normalized) {
	callback := watcher.options.Callback
	if callback == nil {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			watcher.callbackFailed(normalized, fmt.Errorf("callback panic: %v", recovered))
		}
	}()
	if err := callback(normalized); err != nil {
		watcher.callbackFailed(normalized, err)
	}
}

func (watcher *PathWatcher) callbackFailed(normalized event.Normalized, err error) {
	watcher.metrics.IncCallbackFailure()
	watcher.logger.Warn("watcher callback failed", map[string]string{
		"path":   normalized.Path,
		"action": string(normalized.Action),
		"error":  err.Error(),
	})
}

// watchedDirs lists canonical watched directories, sorted.
func (watcher *PathWatcher) watchedDirs() []string {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	out := make([]string, 0, len(watcher.dirs))
	for dir := range watcher.dirs {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}
