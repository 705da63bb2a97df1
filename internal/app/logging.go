package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by the CLI.
const (
	EnvWorkers  = "PMATCH_WORKERS"
	EnvLogLevel = "PMATCH_LOG_LEVEL"
	EnvJSONLog  = "PMATCH_JSON_LOG"
)

// NewLogger returns a text or JSON slog logger writing to w.
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoggerFromEnv builds the CLI logger. level overrides PMATCH_LOG_LEVEL when
// non-empty; PMATCH_JSON_LOG=1|true|json selects the JSON handler.
func LoggerFromEnv(w io.Writer, level string) (*slog.Logger, error) {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(w, lvl, JSONLogFromEnv()), nil
}

// JSONLogFromEnv reports whether PMATCH_JSON_LOG asks for JSON output.
func JSONLogFromEnv() bool {
	switch strings.ToLower(os.Getenv(EnvJSONLog)) {
	case "1", "true", "json":
		return true
	}
	return false
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means warn,
// which keeps the CLI quiet unless something is off.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// discardLogger drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
