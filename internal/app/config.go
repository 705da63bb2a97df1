package app

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot string
	DBPath      string       // path to bbolt file (default: .pmatch/pmatch.db)
	Workers     int          // worker pool size (default: runtime.NumCPU())
	NoCache     bool         // neither load nor persist pattern analyses
	Logger      *slog.Logger // nil = discard
}

// WorkersFromEnv returns PMATCH_WORKERS, or 0 when it is unset.
func WorkersFromEnv() (int, error) {
	v := strings.TrimSpace(os.Getenv(EnvWorkers))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s=%q: want a positive integer", EnvWorkers, v)
	}
	return n, nil
}

// resolve fills defaults and validates the configuration.
func (c Config) resolve() (Config, error) {
	if c.ProjectRoot == "" {
		return c, fmt.Errorf("project root required")
	}
	if c.DBPath == "" {
		c.DBPath = NewPaths(c.ProjectRoot).DB
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Workers < 1 {
		return c, fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Logger == nil {
		c.Logger = discardLogger()
	}
	return c, nil
}
