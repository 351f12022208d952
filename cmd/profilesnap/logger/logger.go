// Package logger provides structured logging configuration for profilesnap.
//
// It creates slog.Logger instances configured according to the Config,
// supporting both text and JSON output formats, and configurable log levels
// (debug, info, warn, error). Logs go to stderr so that the tables and JSON
// printed by the inspection commands stay clean on stdout.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/HatiCode/profilesnap/cmd/profilesnap/config"
)

func New(cfg *config.Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
