// Package log provides structured logging for go-gazekey.
// It wraps slog with a process-wide logger whose level can change at runtime.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	level  slog.LevelVar
	once   sync.Once
)

// ParseLevel maps a level name to a slog level.
// Valid levels: "debug", "info", "warn", "error". Anything else is info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Init sets up the global logger. Only the first call builds the handler;
// later calls just change the level.
//
// Output is JSON when GAZEKEY_LOG_FORMAT=json or GO_ENV=production, text
// otherwise. Logs go to stderr so terminal tools can own stdout.
func Init(name string) {
	level.Set(ParseLevel(name))
	once.Do(setup)
}

func setup() {
	opts := &slog.HandlerOptions{Level: &level}

	var h slog.Handler
	if os.Getenv("GAZEKEY_LOG_FORMAT") == "json" || os.Getenv("GO_ENV") == "production" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// SetLevel changes the level of the global logger.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// L returns the global logger, creating an info-level one on first use.
func L() *slog.Logger {
	once.Do(setup)
	return logger
}

// Component returns a logger tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { L().Error(msg, args...) }

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
