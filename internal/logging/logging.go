// Package logging builds the process logger. Everything downstream receives
// a *slog.Logger (falling back to slog.Default when nil), so handler and
// level are decided once, here.
package logging

import (
	"log/slog"
	"os"
)

// New builds a leveled text or JSON logger on stdout.
func New(level, format string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Init builds the logger and installs it as the process default.
func Init(level, format string) *slog.Logger {
	logger := New(level, format)
	slog.SetDefault(logger)
	return logger
}
