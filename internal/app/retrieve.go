package app

import (
	"context"
	"fmt"
	"os"

	"github.com/corey/pmatch/internal/adapters/source"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/corey/pmatch/internal/domain/retrieve"
)

// Retrieve locates every pattern listed in patternsPath (one per line) in the
// document at docPath. Patterns are compiled through the pattern cache.
func (a *App) Retrieve(ctx context.Context, docPath, patternsPath string, s match.Strategy) ([]retrieve.Result, error) {
	list, err := os.ReadFile(patternsPath)
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	patterns := retrieve.ParsePatterns(list)
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no patterns in %s", patternsPath)
	}

	doc, err := source.Open(docPath)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	results, err := retrieve.Search(ctx, doc.Bytes(), patterns, s, a.workers, a.CompilePattern)
	if err != nil {
		return nil, err
	}
	a.Log.Info("retrieval finished", "document", docPath, "patterns", len(patterns),
		"mapped", doc.Mapped(), "strategy", s)
	return results, nil
}

// MatchFile finds pattern in the file at path with strategy s, using the
// compiled-pattern cache.
func (a *App) MatchFile(ctx context.Context, path string, pattern []byte, s match.Strategy) ([]int, error) {
	pt, err := a.CompilePattern(ctx, pattern)
	if err != nil {
		return nil, err
	}
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return pt.MatchWith(ctx, s, src.Bytes())
}
