package log

import (
	"fmt"
	"strings"
)

// Config is a declarative logger configuration, typically sourced from the
// process config file or environment.
type Config struct {
	// Level is the minimum level: debug|info|warn|error|fatal.
	Level string `json:"level" yaml:"level"`
	// Format selects the formatter: text|json.
	Format string `json:"format" yaml:"format"`
	// File, when set, appends output to the given path in addition to stdout.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	// RedactKeys lists field keys whose values are masked before formatting.
	RedactKeys []string `json:"redactKeys,omitempty" yaml:"redactKeys,omitempty"`
	// SamplingInitial and SamplingThereafter enable per-message sampling when
	// SamplingThereafter > 0.
	SamplingInitial    int `json:"samplingInitial,omitempty" yaml:"samplingInitial,omitempty"`
	SamplingThereafter int `json:"samplingThereafter,omitempty" yaml:"samplingThereafter,omitempty"`
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from a declarative Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return NewLogger(), nil
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "json":
		formatter = &JSONFormatter{}
	case "text", "":
		formatter = &TextFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	opts := []LoggerOption{
		WithLevel(level),
		WithFormatter(formatter),
		WithOutput(NewConsoleOutput()),
	}
	if cfg.File != "" {
		fo, err := NewFileOutput(cfg.File)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithOutput(fo))
	}
	if len(cfg.RedactKeys) > 0 {
		opts = append(opts, WithRedactions(cfg.RedactKeys...))
	}
	if cfg.SamplingThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SamplingInitial, cfg.SamplingThereafter))
	}
	return NewLogger(opts...), nil
}
