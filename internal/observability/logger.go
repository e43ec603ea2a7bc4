// Package observability sets up logging and tracing for the process.
package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerConfig configures the global logger
type LoggerConfig struct {
	Level   string // debug, info, warn, error
	File    string // optional; receives JSON lines in addition to stdout
	Console bool   // human-readable stdout instead of JSON
}

// InitLogger initializes the global logger.
// The returned closer releases the log file (no-op without one).
func InitLogger(cfg LoggerConfig) io.Closer {
	var stdout io.Writer = os.Stdout
	if cfg.Console {
		stdout = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	writers := []io.Writer{stdout}
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			// Logger is not ready yet
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, using stdout only\n", cfg.File, err)
		} else {
			writers = append(writers, file)
			closer = file
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()

	level := ParseLogLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Str("file", cfg.File).
		Msg("Logger initialized")

	return closer
}

// ParseLogLevel parses a level name, defaulting to info
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
