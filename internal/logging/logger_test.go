package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestLoggerWritesToBuffer(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelInfo, io.Discard)

	logger.Info("watch started", map[string]string{"root": "/srv/data"})

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != LevelInfo {
		t.Fatalf("expected info level, got %q", entry.Level)
	}
	if entry.Message != "watch started" {
		t.Fatalf("expected message, got %q", entry.Message)
	}
	if entry.Context["root"] != "/srv/data" {
		t.Fatalf("expected root context, got %v", entry.Context)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelWarning, io.Discard)

	logger.Info("info", nil)
	logger.Warn("warn", nil)

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != LevelWarning {
		t.Fatalf("expected warning level, got %q", entries[0].Level)
	}
}

func TestLoggerWithMergesContext(t *testing.T) {
	buffer := NewLogBuffer(10)
	base := NewLoggerWithOutput(buffer, LevelDebug, io.Discard)
	logger := base.With(map[string]string{"filesentry.category": "watcher"})

	logger.Debug("raw event", map[string]string{"path": "/tmp/a"})
	base.Debug("plain", nil)

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Context["filesentry.category"] != "watcher" || entries[0].Context["path"] != "/tmp/a" {
		t.Fatalf("unexpected merged context: %v", entries[0].Context)
	}
	if entries[1].Context != nil {
		t.Fatalf("expected base logger context to stay empty, got %v", entries[1].Context)
	}
}

func TestLoggerFormatsSortedFields(t *testing.T) {
	var output bytes.Buffer
	logger := NewLoggerWithOutput(nil, LevelInfo, &output)

	logger.Error("sink failed", map[string]string{"sink": "matrix", "error": "boom"})

	line := output.String()
	if !strings.Contains(line, `level=error msg="sink failed" error="boom" sink="matrix"`) {
		t.Fatalf("unexpected formatted line: %q", line)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var logger *Logger
	logger.Info("ignored", nil)
	logger.With(map[string]string{"a": "b"}).Warn("ignored", nil)
	if logger.Enabled(LevelError) {
		t.Fatal("nil logger should not be enabled")
	}
	if logger.Buffer() != nil {
		t.Fatal("nil logger should have no buffer")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warn":    LevelWarning,
		"Warning": LevelWarning,
		"error":   LevelError,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
	if _, ok := ParseLevel("verbose"); ok {
		t.Fatal("expected verbose to be rejected")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var out bytes.Buffer
	logger := New(Options{Output: &out, Level: LevelInfo, Format: FormatJSON}).
		With(map[string]string{CategoryKey: "watcher"})

	logger.Warn("backend error", map[string]string{"error": "overflow"})

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", out.String(), err)
	}
	if entry.Level != LevelWarning || entry.Message != "backend error" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Context[CategoryKey] != "watcher" || entry.Context["error"] != "overflow" {
		t.Fatalf("unexpected context %v", entry.Context)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatText, "TEXT": FormatText, " json ": FormatJSON}
	for input, want := range cases {
		got, ok := ParseFormat(input)
		if !ok || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := ParseFormat("xml"); ok {
		t.Fatalf("expected xml to be rejected")
	}
}
