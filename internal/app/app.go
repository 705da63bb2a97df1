// Package app wires together all adapters and domain logic: the bbolt store,
// the compiled-pattern cache, signature scanning, tree watching and document
// retrieval. The CLI and the scan daemon are thin layers over it.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/corey/pmatch/internal/adapters/bbolt"
	"github.com/corey/pmatch/internal/domain/match"
)

// App is the top-level container wiring all components together.
type App struct {
	ProjectRoot string
	Paths       *Paths
	Store       *bbolt.Store
	Log         *slog.Logger

	workers int
	noCache bool

	mu       sync.Mutex
	compiled map[string]*match.Pattern // AnalysisKey -> pattern, process lifetime
}

// New creates an App and opens its store.
func New(cfg Config) (*App, error) {
	cfg, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	store, err := bbolt.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &App{
		ProjectRoot: cfg.ProjectRoot,
		Paths:       NewPaths(cfg.ProjectRoot),
		Store:       store,
		Log:         cfg.Logger,
		workers:     cfg.Workers,
		noCache:     cfg.NoCache,
		compiled:    make(map[string]*match.Pattern),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// Workers returns the worker pool size.
func (a *App) Workers() int { return a.workers }

// MatchOptions returns the engine options for patterns compiled by the app.
func (a *App) MatchOptions() match.Options {
	return match.Options{Workers: a.workers}
}

// CompilePattern returns the compiled form of pattern. Results are memoized
// for the life of the process and, unless caching is disabled, persisted in
// the store so the witness array of a long pattern is built only once.
func (a *App) CompilePattern(ctx context.Context, pattern []byte) (*match.Pattern, error) {
	if len(pattern) == 0 {
		return nil, match.ErrEmptyPattern
	}
	key := bbolt.AnalysisKey(pattern)

	a.mu.Lock()
	pt, ok := a.compiled[key]
	a.mu.Unlock()
	if ok && bytes.Equal(pt.Bytes(), pattern) {
		return pt, nil
	}

	pt = a.loadCached(key, pattern)
	if pt == nil {
		start := time.Now()
		var err error
		pt, err = match.Compile(ctx, pattern, a.MatchOptions())
		if err != nil {
			return nil, err
		}
		a.Log.Debug("pattern compiled", "key", key, "period", pt.Period(),
			"route", pt.Route(), "elapsed", time.Since(start))
		if !a.noCache {
			if err := a.Store.SaveAnalysis(key, pt.Analysis()); err != nil {
				a.Log.Warn("analysis not cached", "key", key, "err", err)
			}
		}
	}

	a.mu.Lock()
	a.compiled[key] = pt
	a.mu.Unlock()
	return pt, nil
}

// loadCached returns the pattern rebuilt from a stored analysis, or nil when
// there is none or it cannot be used.
func (a *App) loadCached(key string, pattern []byte) *match.Pattern {
	if a.noCache {
		return nil
	}
	an, err := a.Store.LoadAnalysis(key)
	if err != nil {
		a.Log.Warn("analysis cache unreadable", "key", key, "err", err)
		return nil
	}
	if an == nil {
		return nil
	}
	pt, err := match.FromAnalysis(pattern, an, a.MatchOptions())
	if err != nil {
		if errors.Is(err, match.ErrAnalysisMismatch) {
			a.Log.Warn("stale analysis discarded", "key", key, "err", err)
		}
		return nil
	}
	a.Log.Debug("pattern loaded from cache", "key", key, "period", pt.Period())
	return pt
}
