package config

import (
	"os"
	"path/filepath"
	"testing"

	pebblestore "github.com/rzbill/hashlink/internal/storage/pebble"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":8090" {
		t.Fatalf("default http addr")
	}
	if cfg.SyncPageSize != 100 {
		t.Fatalf("default sync page size")
	}
	if cfg.Fsync != "always" {
		t.Fatalf("default fsync")
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hashlink.json")
	data := []byte(`{"httpAddr":":9000","operator":"0.0.7","syncPageSize":25,"log":{"level":"debug"}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected :9000")
	}
	if cfg.Operator != "0.0.7" {
		t.Fatalf("expected operator override")
	}
	if cfg.SyncPageSize != 25 {
		t.Fatalf("expected 25")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug")
	}
	// untouched fields keep defaults
	if cfg.Fsync != "always" {
		t.Fatalf("fsync default lost")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hashlink.yaml")
	data := []byte("httpAddr: \":9100\"\nactionTopic: t.3\nresolveParallelism: 8\nlog:\n  level: warn\n  format: json\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9100" || cfg.ActionTopic != "t.3" || cfg.ResolveParallelism != 8 {
		t.Fatalf("yaml values: %+v", cfg)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Fatalf("yaml log values: %+v", cfg.Log)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("HL_HTTP_ADDR", ":7000")
	os.Setenv("HL_OPERATOR", "0.0.42")
	os.Setenv("HL_SYNC_PAGE_SIZE", "10")
	os.Setenv("HL_LOG_LEVEL", "debug")
	t.Cleanup(func() {
		os.Unsetenv("HL_HTTP_ADDR")
		os.Unsetenv("HL_OPERATOR")
		os.Unsetenv("HL_SYNC_PAGE_SIZE")
		os.Unsetenv("HL_LOG_LEVEL")
	})
	FromEnv(&cfg)
	if cfg.HTTPAddr != ":7000" {
		t.Fatalf("env override addr")
	}
	if cfg.Operator != "0.0.42" {
		t.Fatalf("env override operator")
	}
	if cfg.SyncPageSize != 10 {
		t.Fatalf("env override page size")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("env override log level")
	}
}

func TestFsyncMode(t *testing.T) {
	cases := map[string]pebblestore.FsyncMode{
		"":         pebblestore.FsyncModeAlways,
		"always":   pebblestore.FsyncModeAlways,
		"interval": pebblestore.FsyncModeInterval,
		"never":    pebblestore.FsyncModeNever,
	}
	for in, want := range cases {
		cfg := Config{Fsync: in}
		got, err := cfg.FsyncMode()
		if err != nil || got != want {
			t.Fatalf("FsyncMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := (Config{Fsync: "sometimes"}).FsyncMode(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
