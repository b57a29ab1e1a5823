package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process-wide logger. An unknown level falls back to
// info instead of failing startup, and durations are logged in milliseconds
// so request timings line up with the histogram buckets.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(logDestination(cfg.Format)).
		Level(level).
		With().
		Timestamp().
		Str("service", "meetgrid").
		Logger()

	log.Logger = logger
	return logger
}

// logDestination picks the writer for the configured format. JSON to stdout
// is the default; "console" is the human-readable local-development form and
// goes to stderr so it never mixes with piped output.
func logDestination(format string) io.Writer {
	if strings.EqualFold(format, "console") {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stdout
}
