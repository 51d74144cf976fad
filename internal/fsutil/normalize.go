package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrEmptyPath = errors.New("empty path")

// CanonicalPath returns the absolute, cleaned, forward-slash form of value.
// Symlinks are not resolved; removed paths must still canonicalize.
func CanonicalPath(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", ErrEmptyPath
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return filepath.ToSlash(filepath.Clean(abs)), nil
}

// NativePath converts a canonical path back to the host separator.
func NativePath(canonical string) string {
	return filepath.FromSlash(canonical)
}

// IsDir reports whether value names an existing directory, without following
// a trailing symlink.
func IsDir(value string) bool {
	info, err := os.Lstat(value)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// WalkDirs returns root and every directory below it. Unreadable entries are
// skipped and reported through skipped when non-nil.
func WalkDirs(root string, skipped func(path string, err error)) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if skipped != nil {
				skipped(path, err)
			}
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
