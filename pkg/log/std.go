package log

import (
	stdlog "log"
	"strings"
)

// stdWriter adapts a Logger into an io.Writer for the standard library logger.
type stdWriter struct {
	l Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.l.Info(msg)
	}
	return len(p), nil
}

// RedirectStdLog routes standard library log output (used by Pebble and other
// dependencies) through the provided logger.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{l: l.WithComponent("stdlog")})
}

// ToStdLogger returns a *log.Logger that forwards to l, for libraries that
// only accept the standard interface.
func ToStdLogger(l Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{l: l}, "", 0)
}
