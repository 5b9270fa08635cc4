// Package logger configures structured logging for the server.
//
// All output goes to stderr: stdout is reserved for the MCP stdio protocol.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON slog.Logger writing to stderr at the given level.
// Level is one of debug, info, warn, error (case-insensitive); anything
// else falls back to info. Source locations are attached at debug level.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit destination, used by tests.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
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

// Nop returns a logger that discards everything, for tests and tools that
// must keep stderr quiet.
func Nop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
