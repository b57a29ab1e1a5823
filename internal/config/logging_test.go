package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "debug", Format: "json"})
	require.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestNewLoggerUnknownLevelFallsBack(t *testing.T) {
	logger := NewLogger(LoggingConfig{Level: "chatty", Format: "json"})
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestLogDestinationConsole(t *testing.T) {
	require.IsType(t, zerolog.ConsoleWriter{}, logDestination("console"))
	require.IsType(t, zerolog.ConsoleWriter{}, logDestination("Console"))
	_, isConsole := logDestination("json").(zerolog.ConsoleWriter)
	require.False(t, isConsole)
}
