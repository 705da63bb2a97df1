package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corey/pmatch/internal/adapters/ahocorasick"
	"github.com/corey/pmatch/internal/domain/match"
	"github.com/corey/pmatch/internal/domain/scan"
	"github.com/corey/pmatch/internal/ports"
)

// LoadSignatures reads every regular file in dir as one signature named after
// the file. Hidden files are ignored. An empty signature file is an error,
// since it would match everywhere.
func LoadSignatures(dir string) ([]scan.Signature, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read signatures: %w", err)
	}

	var sigs []scan.Signature
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read signature %s: %w", name, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("signature %s: %w", name, match.ErrEmptyPattern)
		}
		sigs = append(sigs, scan.Signature{Name: name, Data: data})
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("no signatures in %s", dir)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].Name < sigs[j].Name })
	return sigs, nil
}

// NewScanner compiles sigs through the pattern cache and builds a scanner.
// With prefilter set, an Aho-Corasick automaton over all signatures decides
// which of them are matched against each file.
func (a *App) NewScanner(ctx context.Context, sigs []scan.Signature, strategy match.Strategy, prefilter bool) (*scan.Scanner, error) {
	entries := make([]scan.Entry, len(sigs))
	raw := make([][]byte, len(sigs))
	for i, s := range sigs {
		pt, err := a.CompilePattern(ctx, s.Data)
		if err != nil {
			return nil, fmt.Errorf("signature %s: %w", s.Name, err)
		}
		entries[i] = scan.Entry{Name: s.Name, Pattern: pt}
		raw[i] = s.Data
	}

	var pf ports.PatternMatcher
	if prefilter {
		pf = ahocorasick.NewPrefilter(raw)
	}
	a.Log.Info("scanner ready", "signatures", len(sigs), "strategy", strategy, "prefilter", prefilter)
	return scan.NewScanner(entries, pf, strategy)
}
