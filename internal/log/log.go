// Package log provides the small structured-logging interface the
// rest of this module logs through, wrapping log/slog so callers can
// swap in their own slog.Handler without this module depending on any
// particular logging backend.
package log

import (
	"io"
	"log/slog"
)

// Logger is the logging surface this module's packages depend on.
// Key-value pairs follow slog's convention: alternating key, value.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// slogLogger adapts an *slog.Logger to Logger.
type slogLogger struct {
	l *slog.Logger
}

// New wraps an *slog.Logger. Passing nil uses slog.Default().
func New(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

// Discard returns a Logger that drops everything, for callers that
// haven't configured logging.
func Discard() Logger {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *slogLogger) Debug(msg string, kv ...any) { s.l.Debug(msg, kv...) }
func (s *slogLogger) Info(msg string, kv ...any)  { s.l.Info(msg, kv...) }
func (s *slogLogger) Warn(msg string, kv ...any)  { s.l.Warn(msg, kv...) }
func (s *slogLogger) Error(msg string, kv ...any) { s.l.Error(msg, kv...) }
