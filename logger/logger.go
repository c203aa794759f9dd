// Package logger builds the zerolog logger used by the command-line tools.
// Library packages never log; they return errors and results.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger.
type Options struct {
	Level     string
	Format    string
	Component string
	Writer    io.Writer
}

// Logger is the project-wide logging type.
type Logger = zerolog.Logger

// New builds a logger writing to opts.Writer, or stderr when unset. Format
// "json" emits one JSON object per line; anything else is console output.
func New(opts Options) Logger {
	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}
	if opts.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	ctx := zerolog.New(w).Level(ParseLevel(opts.Level)).With().Timestamp()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}
	return ctx.Logger()
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean warn.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// ValidLevel reports whether s names a level ParseLevel understands.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
		return true
	}
	return false
}
