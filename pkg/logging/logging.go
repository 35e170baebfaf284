// Package logging builds the process logger from the log section of the run
// configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/pseudomuto/groundskeeper/pkg/consts"
)

// New returns a logger writing to w in the configured format and level. Every
// record carries the tool name and version.
//
// Example:
//
//	logger := logging.New(cfg.Log, os.Stderr, "1.2.0")
//	logger.Info("Applying version", "version", "v1.00")
func New(cfg config.Log, w io.Writer, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("tool", consts.ToolName),
		slog.String("tool_version", version),
	}))
}

// ParseLevel converts a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
