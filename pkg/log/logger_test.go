package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferLogger(opts ...LoggerOption) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	base := []LoggerOption{
		WithLevel(DebugLevel),
		WithFormatter(&TextFormatter{DisableTimestamp: true}),
		WithOutput(NewWriterOutput(buf)),
	}
	return NewLogger(append(base, opts...)...), buf
}

func TestLevelsFilter(t *testing.T) {
	l, buf := newBufferLogger(WithLevel(WarnLevel))
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("low levels leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn missing: %q", out)
	}
}

func TestWithFieldsAppear(t *testing.T) {
	l, buf := newBufferLogger()
	l.With(Str("topic", "t1")).Info("synced", Int("entries", 3))
	out := buf.String()
	if !strings.Contains(out, "topic=t1") || !strings.Contains(out, "entries=3") {
		t.Fatalf("fields missing: %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLogger(WithFormatter(&JSONFormatter{}), WithOutput(NewWriterOutput(buf)))
	l.Info("hello", Str("k", "v"))
	var obj map[string]any
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if obj["msg"] != "hello" || obj["level"] != "INFO" || obj["k"] != "v" {
		t.Fatalf("unexpected object: %v", obj)
	}
}

func TestRedaction(t *testing.T) {
	l, buf := newBufferLogger(WithRedactions("operator_key"))
	l.Info("boot", Str("operator_key", "secret"))
	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("redaction failed: %q", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("marker missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": DebugLevel, "info": InfoLevel, "WARN": WarnLevel, "error": ErrorLevel, "": InfoLevel}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestSampling(t *testing.T) {
	l, buf := newBufferLogger(WithSampling(1, 10))
	for i := 0; i < 12; i++ {
		l.Info("repeated")
	}
	n := strings.Count(buf.String(), "repeated")
	// first pass + one in ten afterwards
	if n != 3 {
		t.Fatalf("want 3 sampled lines, got %d", n)
	}
}
