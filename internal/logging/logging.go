// Package logging wires log/slog the way the mesh layer does: one base
// logger, per-component children created with With("component", ...).
package logging

import (
	"log/slog"
	"os"
)

// New builds a base logger writing level-filtered text to w (os.Stderr by
// default), text output since nothing here is consumed by a log pipeline
// that wants JSON.
func New(level slog.Level, w *os.File) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// Component returns a child logger tagged with its subsystem name,
// mirroring kernel/core/mesh/routing/gossip.go's
// logger.With("component", ...) convention.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", name)
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// slog.Level, defaulting to Info on anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
