package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCanonicalPathCleansAndSlashes(t *testing.T) {
	root := t.TempDir()
	raw := filepath.Join(root, "a", "..", "b", ".", "c.env")

	got, err := CanonicalPath(raw)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	want := filepath.ToSlash(filepath.Join(root, "b", "c.env"))
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if strings.Contains(got, `\`) {
		t.Fatalf("expected forward slashes, got %q", got)
	}
}

func TestCanonicalPathRelative(t *testing.T) {
	got, err := CanonicalPath("relative/file.txt")
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if !filepath.IsAbs(NativePath(got)) {
		t.Fatalf("expected absolute path, got %q", got)
	}
	if !strings.HasSuffix(got, "/relative/file.txt") {
		t.Fatalf("unexpected canonical path %q", got)
	}
}

func TestCanonicalPathRejectsEmpty(t *testing.T) {
	if _, err := CanonicalPath("  "); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestIsDir(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsDir(root) {
		t.Fatal("expected temp dir to be a directory")
	}
	if IsDir(file) {
		t.Fatal("expected file not to be a directory")
	}
	if IsDir(filepath.Join(root, "missing")) {
		t.Fatal("expected missing path not to be a directory")
	}
}

func TestWalkDirs(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "f"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := WalkDirs(root, nil)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(dirs) != 3 {
		t.Fatalf("expected 3 directories, got %v", dirs)
	}
	if dirs[0] != root {
		t.Fatalf("expected root first, got %q", dirs[0])
	}
}

func TestWalkDirsMissingRoot(t *testing.T) {
	if _, err := WalkDirs(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatal("expected error for missing root")
	}
}
