package logger

import (
	"log/slog"
	"os"
)

// NewTest returns a logger for tests. Quiet by default; set DEBUG=1 for
// info-level output or DEBUG=2 for debug-level output.
func NewTest() *slog.Logger {
	var level slog.Level
	switch os.Getenv("DEBUG") {
	case "2":
		level = slog.LevelDebug
	case "1":
		level = slog.LevelInfo
	default:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
