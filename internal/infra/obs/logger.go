package obs

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options tune the application logger.
type Options struct {
	Env   string // "dev" and "local" get colorized console output
	Level string // debug, info, warn or error; anything else means info
}

// NewLogger builds the root slog.Logger: tint console output for local
// development, JSON for everything else.
func NewLogger(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)
	if opts.Env == "dev" || opts.Env == "local" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
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
