package crm

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger writes JSON lines to the configured log file. The terminal is
// left to command output and the TUI.
func NewLogger(config *Config) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if config.LogFile == "" || config.LogFile == "-" {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("cannot open log file: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(f).
		Level(level).
		With().
		Timestamp().
		Str("app", "crm-cli").
		Str("version", Version).
		Logger()
	return log, f, nil
}
