package watcher

import (
	"strconv"
	"strings"

	"filesentry/internal/fsutil"
)

// watchTreeLocked adds a watch for dir and, in recursive mode, for every
// directory below it. A failure on dir itself is returned when strict is set;
// failures below it are logged and skipped.
func (watcher *PathWatcher) watchTreeLocked(backend backend, dir string, strict bool) error {
	dirs := []string{dir}
	if watcher.options.Recursive {
		walked, err := fsutil.WalkDirs(dir, func(path string, err error) {
			watcher.logger.Warn("skipping unreadable directory", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
		})
		if err != nil {
			if strict {
				return err
			}
			return nil
		}
		dirs = walked
	}

	for index, path := range dirs {
		if err := watcher.addWatchLocked(backend, path); err != nil {
			if index == 0 && strict {
				return err
			}
			watcher.logger.Warn("watch add failed", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
		}
	}
	return nil
}

func (watcher *PathWatcher) addWatchLocked(backend backend, path string) error {
	canonical, err := fsutil.CanonicalPath(path)
	if err != nil {
		return err
	}
	if _, ok := watcher.dirs[canonical]; ok {
		return nil
	}
	if err := backend.Add(path); err != nil {
		return err
	}
	watcher.dirs[canonical] = struct{}{}
	watcher.logger.Debug("watch added", map[string]string{
		"path":    canonical,
		"watches": strconv.Itoa(len(watcher.dirs)),
	})
	return nil
}

// forgetDir drops path and everything below it from the watched set and
// reports whether path itself was a watched directory. The backend removes
// its own watch when the directory disappears.
func (watcher *PathWatcher) forgetDir(path string) bool {
	canonical, err := fsutil.CanonicalPath(path)
	if err != nil {
		return false
	}
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()

	_, wasDir := watcher.dirs[canonical]
	if !wasDir {
		return false
	}
	prefix := canonical + "/"
	for dir := range watcher.dirs {
		if dir == canonical || strings.HasPrefix(dir, prefix) {
			delete(watcher.dirs, dir)
		}
	}
	return true
}
