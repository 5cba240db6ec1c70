package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	cfg := mgr.Get()
	if cfg.AnalyzeURL != DefaultAnalyzeURL {
		t.Fatalf("expected default analyze url, got %s", cfg.AnalyzeURL)
	}
	cfg.AnalyzeURL = "https://analysis.example.com/analyze"
	cfg.LogDir = filepath.Join(dir, "logs")

	data, _ := json.Marshal(cfg)
	if err := mgr.UpdateFromJSON(string(data)); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	updated := mgr.Get()
	if updated.AnalyzeURL != cfg.AnalyzeURL {
		t.Fatalf("expected analyze url %s, got %s", cfg.AnalyzeURL, updated.AnalyzeURL)
	}

	reopened, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager (reopen): %v", err)
	}
	if reopened.Get().AnalyzeURL != cfg.AnalyzeURL {
		t.Fatalf("update was not persisted, got %s", reopened.Get().AnalyzeURL)
	}
}

func TestManagerRejectsInvalidUpdate(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := mgr.UpdateField("analyze_url", "ftp://example.com"); err == nil {
		t.Fatalf("expected validation error for ftp scheme")
	}
	if err := mgr.UpdateField("api_key", "sk-test"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if got := mgr.Get().AnalyzeURL; got != DefaultAnalyzeURL {
		t.Fatalf("rejected update leaked into config: %s", got)
	}
}

func TestManagerUpdateField(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := mgr.UpdateField("request_timeout_seconds", "30"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if got := mgr.Get().RequestTimeoutSeconds; got != 30 {
		t.Fatalf("expected timeout 30, got %d", got)
	}

	raw, err := os.ReadFile(mgr.Path())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	lower := strings.ToLower(string(raw))
	if strings.Contains(lower, "apikey") || strings.Contains(lower, "api_key") {
		t.Fatalf("config file must not carry credentials: %s", raw)
	}
}

func TestManagerWritesInitialConfig(t *testing.T) {
	dir := t.TempDir()
	initial := DefaultConfigWithRoot(dir)
	initial.ListenAddr = ":9191"

	mgr, err := NewManager(WithConfigDir(dir), WithInitialConfig(initial))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := mgr.Get().ListenAddr; got != ":9191" {
		t.Fatalf("expected initial listen addr, got %s", got)
	}

	// An existing file wins over the initial config.
	other := DefaultConfigWithRoot(dir)
	other.ListenAddr = ":1"
	reopened, err := NewManager(WithConfigDir(dir), WithInitialConfig(other))
	if err != nil {
		t.Fatalf("NewManager (reopen): %v", err)
	}
	if got := reopened.Get().ListenAddr; got != ":9191" {
		t.Fatalf("expected persisted listen addr, got %s", got)
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zap.InfoLevel)
	mgr, err := NewManager(
		WithConfigDir(dir),
		WithDebounce(20*time.Millisecond),
		WithLogger(zap.New(core)),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.AnalyzeURL = "http://127.0.0.1:9999/analyze"

	if err := writeConfigFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.AnalyzeURL != cfg.AnalyzeURL {
			t.Fatalf("expected reloaded url %s, got %s", cfg.AnalyzeURL, got.AnalyzeURL)
		}
		if n := logs.FilterMessage("config reloaded").Len(); n == 0 {
			t.Fatalf("expected a reload log entry")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}
