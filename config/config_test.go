package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, `
http:
  port: 9090
  request_timeout: 5s
log:
  level: debug
ml:
  trees: 50
cache:
  size: 16
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.HTTP.Port != 9090 || config.HTTP.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected http config %+v", config.HTTP)
	}
	if config.Log.Level != "debug" || config.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", config.Log)
	}
	if config.ML.Trees != 50 || config.ML.Seed != 42 || config.ML.TestFraction != 0.2 {
		t.Fatalf("unexpected ml config %+v", config.ML)
	}
	if config.Dataset.Path != "data/mental_wellness.csv" || config.Database.Path != "data/mindsync.db" {
		t.Fatalf("expected default paths, got %q and %q", config.Dataset.Path, config.Database.Path)
	}
	if config.Cache.Size != 16 {
		t.Fatalf("expected cache size 16, got %d", config.Cache.Size)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "http: [\n"},
		{name: "port", content: "http:\n  port: 70000\n"},
		{name: "test fraction", content: "ml:\n  test_fraction: 1.5\n"},
		{name: "log format", content: "log:\n  format: xml\n"},
		{name: "cache size", content: "cache:\n  size: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeConfig(t, path, tt.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "cache:\n  size: 8\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zap.NewNop(), func(c *Config) {
			select {
			case reloaded <- c:
			default:
			}
		})
	}()

	// Keep rewriting until the watcher has registered and reports a reload.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-reloaded:
			if c.Cache.Size != 32 {
				t.Fatalf("expected reloaded cache size 32, got %d", c.Cache.Size)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch returned error: %v", err)
			}
			return
		case <-tick.C:
			writeConfig(t, path, "cache:\n  size: 32\n")
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestSectionConversions(t *testing.T) {
	config := Default()
	config.ML.Trees = 25
	config.ML.MaxDepth = 6
	config.ML.Seed = 7

	train := config.ML.TrainConfig()
	if train.TestFraction != 0.2 || train.Seed != 7 {
		t.Fatalf("unexpected train config %+v", train)
	}
	if train.Forest.Trees != 25 || train.Forest.MaxDepth != 6 || train.Forest.Seed != 7 {
		t.Fatalf("unexpected forest config %+v", train.Forest)
	}

	if opts := config.Dataset.LoadOptions(); len(opts) != 1 {
		t.Fatalf("expected one load option, got %d", len(opts))
	}
	if opts := (DatasetConfig{}).LoadOptions(); opts != nil {
		t.Fatal("expected no load options without an encoding")
	}

	store := config.Database.StoreConfig()
	if store.Path != "data/mindsync.db" || !store.EnableWAL || store.MaxConns != 4 {
		t.Fatalf("unexpected store config %+v", store)
	}
}
