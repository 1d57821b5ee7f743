// Package logging configures the global zerolog logger and derives
// run-scoped child loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string    // debug, info, warn, error
	Format     string    // json, console
	TimeFormat string    // RFC3339, Unix, etc.
	Output     io.Writer // defaults to stdout
}

// DefaultConfig returns JSON logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init installs the global logger. ZEROLOG_LOG_LEVEL overrides cfg.Level and
// ENV=dev forces console output.
func Init(cfg Config) {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat
	zerolog.SetGlobalLevel(resolveLevel(cfg.Level, os.Getenv("ZEROLOG_LOG_LEVEL")))

	out := cfg.Output
	if cfg.Format == "console" || os.Getenv("ENV") == "dev" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
}

func resolveLevel(configured, override string) zerolog.Level {
	for _, s := range []string{override, configured} {
		if s == "" {
			continue
		}
		if lvl, err := zerolog.ParseLevel(strings.ToLower(s)); err == nil {
			return lvl
		}
	}
	return zerolog.InfoLevel
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithRun tags log lines with a pipeline run.
func WithRun(runID, flow string) zerolog.Logger {
	return log.With().
		Str("runId", runID).
		Str("flow", flow).
		Logger()
}

// WithStage tags log lines with a run, its current stage and the provider
// serving it.
func WithStage(runID, flow, stage, provider string) zerolog.Logger {
	return log.With().
		Str("runId", runID).
		Str("flow", flow).
		Str("stage", stage).
		Str("provider", provider).
		Logger()
}

func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}
