package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Level defaults to info;
// JSON output keeps the format parseable by log shippers without extra config.
func New(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
