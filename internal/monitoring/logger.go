// Package monitoring - logger.go configures structured logging via zerolog.
//
// DESIGN: Library packages log through the global zerolog logger; Setup is
// called once from main to pick level, format and destination. Console format
// is for humans watching the engine, JSON for shipping the engine's own logs.
package monitoring

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerConfig selects level, format and output for the global logger.
type LoggerConfig struct {
	Level  string `yaml:"log_level"`  // debug, info, warn, error
	Format string `yaml:"log_format"` // json, console
	Output string `yaml:"log_output"` // stdout, stderr, or a file path
}

// Setup configures the global zerolog logger.
func Setup(cfg LoggerConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var writer io.Writer
	switch cfg.Output {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			writer = os.Stdout
		} else {
			writer = f
		}
	}

	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
