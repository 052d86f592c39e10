package config

import (
	"os"
	"strconv"
)

// FromEnv overlays HL_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("HL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("HL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("HL_OPERATOR"); v != "" {
		cfg.Operator = v
	}
	if v := os.Getenv("HL_ACTION_TOPIC"); v != "" {
		cfg.ActionTopic = v
	}
	if v := os.Getenv("HL_ASSEMBLY_TOPIC"); v != "" {
		cfg.AssemblyTopic = v
	}
	if v := os.Getenv("HL_SYNC_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SyncPageSize = n
		}
	}
	if v := os.Getenv("HL_RESOLVE_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ResolveParallelism = n
		}
	}
	if v := os.Getenv("HL_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("HL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HL_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("HL_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
