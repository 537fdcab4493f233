package cli

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"yt-transcripts/internal/config"
)

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger builds the run logger. pretty uses tint, colored only when w is a
// terminal.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case "text":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		noColor := true
		if f, ok := w.(*os.File); ok {
			noColor = !isTTY(f)
		}
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}))
	}
}
