// Package logging provides the service log sink and console loggers, both
// built on stdlib slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Severities understood by the service log, lowest first. Verbose and Notice
// sit between the stdlib levels so the redis loglevel names map one to one.
const (
	LevelDebug   = slog.LevelDebug
	LevelVerbose = slog.LevelInfo
	LevelNotice  = slog.Level(2)
	LevelWarn    = slog.LevelWarn
	LevelError   = slog.LevelError
)

// LogConfig controls console logger creation.
type LogConfig struct {
	Level  string    // "debug", "info", "notice", "warn", "error"
	Format string    // "json", "text" (default)
	Output io.Writer // defaults to os.Stderr
}

// New creates a console *slog.Logger for interactive subcommands.
func New(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if l, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(LevelName(l))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LevelName returns the name of a service log severity.
func LevelName(l slog.Level) string {
	switch {
	case l < LevelVerbose:
		return "DEBUG"
	case l < LevelNotice:
		return "VERBOSE"
	case l < LevelWarn:
		return "NOTICE"
	case l < LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "notice":
		return LevelNotice
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelVerbose
	}
}
