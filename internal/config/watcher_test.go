package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/voxtutor/voxtutor/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
gateway:
  base_url: "http://localhost:5000"
session:
  default_mode: study
`

const watcherUpdatedYAML = `
server:
  log_level: debug
gateway:
  base_url: "http://localhost:5000"
session:
  default_mode: quiz
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("initial log level: got %q, want %q", got, config.LogInfo)
	}
}

func TestWatcher_InitialLoadInvalid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherInvalidYAML)

	if _, err := config.NewWatcher(cfgPath, nil); err == nil {
		t.Fatal("expected error for invalid initial config, got nil")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var mu sync.Mutex
	var gotNew *config.Config
	changed := make(chan struct{}, 1)

	w, err := config.NewWatcher(cfgPath, func(old, new *config.Config) {
		mu.Lock()
		gotNew = new
		mu.Unlock()
		select {
		case changed <- struct{}{}:
		default:
		}
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	// Ensure mtime differs even on coarse-grained filesystems.
	time.Sleep(20 * time.Millisecond)
	writeFile(t, cfgPath, watcherUpdatedYAML)
	now := time.Now()
	if err := os.Chtimes(cfgPath, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config change callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotNew.Server.LogLevel != config.LogDebug {
		t.Errorf("new log level: got %q, want %q", gotNew.Server.LogLevel, config.LogDebug)
	}
	if gotNew.Session.DefaultMode != "quiz" {
		t.Errorf("new default mode: got %q, want %q", gotNew.Session.DefaultMode, "quiz")
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Error("Current() should return the reloaded config")
	}
}

func TestWatcher_KeepsOldConfigOnInvalidChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, func(old, new *config.Config) {
		t.Error("onChange must not fire for an invalid config")
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeFile(t, cfgPath, watcherInvalidYAML)
	now := time.Now()
	if err := os.Chtimes(cfgPath, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// Give the watcher a few polling cycles to (not) react.
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("config should be unchanged after invalid reload, got log level %q", got)
	}
}
