package ecs

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// Logger returns the logger used for recoverable anomalies such as corrupt
// instance sets or mono accessors that found more than one value.
// Defaults to slog.Default().
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// SetLogger replaces the package logger. Passing nil restores slog.Default().
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}
