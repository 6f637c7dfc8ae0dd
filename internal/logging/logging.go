// Package logging configures console logging for the deployer CLI.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LevelCritical is used for failures that terminate the process.
const LevelCritical = slog.LevelError + 4

// TimeFormat is the console timestamp layout.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options configures a console logger.
type Options struct {
	// Debug lowers the level to debug
	Debug bool

	// NoColor disables ANSI colors
	NoColor bool
}

// New returns a tint-backed logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  TimeFormat,
		NoColor:     opts.NoColor,
		ReplaceAttr: replaceLevel,
	}))
}

// NewConsole returns a logger for f, with colors only when f is a terminal.
func NewConsole(f *os.File, debug bool) *slog.Logger {
	return New(f, Options{
		Debug:   debug,
		NoColor: !isatty.IsTerminal(f.Fd()),
	})
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Critical logs msg at LevelCritical.
func Critical(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelCritical, msg, args...)
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) != 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
		return slog.String(slog.LevelKey, "CRIT")
	}
	return a
}
