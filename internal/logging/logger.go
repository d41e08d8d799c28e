package logging

import (
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("NEKU_LOG_LEVEL")),
	})
	Logger = slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(component string) *slog.Logger {
	return Logger.With("component", component)
}
