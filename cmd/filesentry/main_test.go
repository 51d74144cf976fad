package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"filesentry/internal/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvConfig,
		config.EnvLogLevel,
		config.EnvLogFormat,
		config.EnvMatrixURL,
		config.EnvMatrixToken,
		config.EnvMatrixRoom,
		config.EnvListen,
		config.EnvToken,
	} {
		t.Setenv(key, "")
	}
}

func runForTest(args []string) (int, string, string) {
	var out, errOut bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	code := runWithSignals(ctx, cancel, nil, args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunHelp(t *testing.T) {
	code, out, _ := runForTest([]string{"--help"})
	if code != exitCodeSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "Usage: filesentry") {
		t.Fatalf("expected usage on stdout, got %q", out)
	}
}

func TestRunVersion(t *testing.T) {
	code, out, _ := runForTest([]string{"-v"})
	if code != exitCodeSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.HasPrefix(out, "filesentry ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestRunWithoutDirectoriesIsUsageError(t *testing.T) {
	code, _, errOut := runForTest(nil)
	if code != exitCodeUsage {
		t.Fatalf("expected exit %d, got %d", exitCodeUsage, code)
	}
	if !strings.Contains(errOut, "at least one directory") {
		t.Fatalf("unexpected stderr %q", errOut)
	}
}

func TestRunConfigErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	badConfig := filepath.Join(dir, "filesentry.yaml")
	if err := os.WriteFile(badConfig, []byte("watch:\n  bogus: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	missing := filepath.Join(dir, "missing")

	cases := map[string][]string{
		"unknown key":       {"--config", badConfig, dir},
		"missing directory": {missing},
		"bad level":         {"--min-level", "Loud", dir},
		"missing config":    {"--config", filepath.Join(dir, "nope.toml"), dir},
	}
	for name, args := range cases {
		code, _, errOut := runForTest(args)
		if code != exitCodeConfig {
			t.Fatalf("%s: expected exit %d, got %d (%s)", name, exitCodeConfig, code, errOut)
		}
	}
}

func TestRunMatrixEnvWithoutRoomIsConfigError(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvMatrixURL, "https://matrix.example.org")
	t.Setenv(config.EnvMatrixToken, "secret")
	code, _, errOut := runForTest([]string{t.TempDir()})
	if code != exitCodeConfig {
		t.Fatalf("expected exit %d, got %d (%s)", exitCodeConfig, code, errOut)
	}
}

func TestLoadConfigLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filesentry.toml")
	body := "[watch]\nqueue_capacity = 16\n\n[log]\nlevel = \"warning\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	env := map[string]string{
		config.EnvConfig:   path,
		config.EnvLogLevel: "error",
		config.EnvListen:   "127.0.0.1:7000",
	}
	lookup := func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	options, err := parseArgs([]string{"--listen", "127.0.0.1:7001", dir}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := loadConfig(options, lookup)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Watch.QueueCapacity != 16 {
		t.Fatalf("expected file value, got %d", cfg.Watch.QueueCapacity)
	}
	if cfg.Log.Level != "error" {
		t.Fatalf("expected env to override file, got %q", cfg.Log.Level)
	}
	if cfg.Server.Addr != "127.0.0.1:7001" {
		t.Fatalf("expected flag to override env, got %q", cfg.Server.Addr)
	}
}

func TestRunReportsFileChangesAndStopsCleanly(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	var out, errOut syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)
	go func() {
		done <- runWithSignals(ctx, cancel, nil, []string{"--debounce", "0", "--no-color", dir}, &out, &errOut)
	}()

	target := filepath.Join(dir, "secret.env")
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "secret.env") {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("expected an alert for %s, stdout %q stderr %q", target, out.String(), errOut.String())
		}
		if err := os.WriteFile(target, []byte("TOKEN=1\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !strings.Contains(out.String(), "Warning (score=") {
		t.Fatalf("expected a Warning alert, got %q", out.String())
	}

	cancel()
	select {
	case code := <-done:
		if code != exitCodeSuccess {
			t.Fatalf("expected exit 0, got %d (%s)", code, errOut.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("expected run to return after cancel")
	}
	if !strings.Contains(errOut.String(), "shutdown phase starting") {
		t.Fatalf("expected shutdown phases to be logged, got %q", errOut.String())
	}
}
