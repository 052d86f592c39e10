package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	pebblestore "github.com/rzbill/hashlink/internal/storage/pebble"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// DataDir is where the pebble store lives. Empty means DefaultDataDir().
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// HTTPAddr is the listen address of the HTTP API.
	HTTPAddr string `json:"httpAddr" yaml:"httpAddr"`
	// Operator is the payer identity recorded on appended messages.
	Operator string `json:"operator" yaml:"operator"`
	// ActionTopic is the shared action registration topic. Empty means the
	// server creates one on first start.
	ActionTopic string `json:"actionTopic" yaml:"actionTopic"`
	// AssemblyTopic is the assembly topic this process owns, if any.
	AssemblyTopic string `json:"assemblyTopic" yaml:"assemblyTopic"`
	// SyncPageSize bounds one registry sync read.
	SyncPageSize int `json:"syncPageSize" yaml:"syncPageSize"`
	// ResolveParallelism bounds concurrent reference resolution.
	ResolveParallelism int `json:"resolveParallelism" yaml:"resolveParallelism"`
	// Fsync is the store durability mode: always|interval|never.
	Fsync string `json:"fsync" yaml:"fsync"`
	// Log configures the process logger.
	Log logpkg.Config `json:"log" yaml:"log"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:           ":8090",
		Operator:           "local",
		SyncPageSize:       100,
		ResolveParallelism: 4,
		Fsync:              "always",
		Log:                logpkg.Config{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// FsyncMode converts the configured durability mode into store options.
func (c Config) FsyncMode() (pebblestore.FsyncMode, error) {
	switch c.Fsync {
	case "", "always":
		return pebblestore.FsyncModeAlways, nil
	case "interval":
		return pebblestore.FsyncModeInterval, nil
	case "never":
		return pebblestore.FsyncModeNever, nil
	default:
		return pebblestore.FsyncModeUnspecified, fmt.Errorf("config: unknown fsync mode %q", c.Fsync)
	}
}
