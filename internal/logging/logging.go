// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level and output format.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Empty means info.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is "console" for human-readable output or "json" for
	// structured output. Empty picks console when stderr is a terminal
	// and json otherwise.
	Format string `mapstructure:"format" yaml:"format"`
}

// New builds the root logger for the process. Components derive their
// own loggers from it with With().Str("component", ...).
func New(cfg Config) zerolog.Logger {
	var out io.Writer = os.Stderr
	if useConsole(cfg.Format) {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
// for empty or unknown names.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func useConsole(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return true
	case "json":
		return false
	}
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
