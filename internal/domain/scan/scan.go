// Package scan finds byte signatures in files. Each signature is matched with
// the exact matching engine; an optional multi-pattern prefilter first narrows
// a file down to the signatures that occur in it at all.
package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corey/pmatch/internal/domain/match"
	"github.com/corey/pmatch/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Signature is a named byte pattern.
type Signature struct {
	Name string
	Data []byte
}

// Entry is a signature with its compiled pattern.
type Entry struct {
	Name    string
	Pattern *match.Pattern
}

// Opener loads the content of a path.
type Opener func(path string) (ports.Source, error)

// Scanner matches a fixed signature set against files. It is safe for
// concurrent use.
type Scanner struct {
	entries   []Entry
	prefilter ports.PatternMatcher // nil = match every signature
	strategy  match.Strategy
}

// NewScanner builds a scanner. prefilter, when non-nil, must have been built
// from the entries' patterns in the same order.
func NewScanner(entries []Entry, prefilter ports.PatternMatcher, strategy match.Strategy) (*Scanner, error) {
	if prefilter != nil && prefilter.Len() != len(entries) {
		return nil, fmt.Errorf("prefilter has %d patterns, scanner %d", prefilter.Len(), len(entries))
	}
	return &Scanner{entries: entries, prefilter: prefilter, strategy: strategy}, nil
}

// Strategy returns the matching strategy in use.
func (s *Scanner) Strategy() match.Strategy { return s.strategy }

// Len returns the number of signatures.
func (s *Scanner) Len() int { return len(s.entries) }

// ScanData matches every signature against data. Matches are sorted by
// signature name.
func (s *Scanner) ScanData(ctx context.Context, path string, data []byte) (ports.FileResult, error) {
	res := ports.FileResult{Path: path}

	var idx []int
	if s.prefilter != nil {
		idx = s.prefilter.Present(data)
	} else {
		idx = make([]int, len(s.entries))
		for i := range idx {
			idx[i] = i
		}
	}

	for _, i := range idx {
		e := s.entries[i]
		offsets, err := e.Pattern.MatchWith(ctx, s.strategy, data)
		if err != nil {
			return res, fmt.Errorf("%s: signature %s: %w", path, e.Name, err)
		}
		if len(offsets) > 0 {
			res.Matches = append(res.Matches, ports.SignatureMatch{Signature: e.Name, Offsets: offsets})
		}
	}
	sort.Slice(res.Matches, func(a, b int) bool {
		return res.Matches[a].Signature < res.Matches[b].Signature
	})
	return res, nil
}

// FileError records a file that could not be opened.
type FileError struct {
	Path string
	Err  error
}

// Summary is the outcome of ScanFiles.
type Summary struct {
	Files   int
	Hits    []ports.FileResult // only files with matches, sorted by path
	Skipped []FileError
	Elapsed time.Duration
}

// ScanFiles scans paths with up to workers files in flight. Unreadable files
// are recorded in Summary.Skipped; a matching failure aborts the scan.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string, open Opener, workers int) (*Summary, error) {
	if workers < 1 {
		workers = 1
	}
	start := time.Now()
	results := make([]ports.FileResult, len(paths))

	var mu sync.Mutex
	var skipped []FileError

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			src, err := open(path)
			if err != nil {
				mu.Lock()
				skipped = append(skipped, FileError{Path: path, Err: err})
				mu.Unlock()
				return nil
			}
			defer src.Close()
			res, err := s.ScanData(gctx, path, src.Bytes())
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := &Summary{Files: len(paths), Elapsed: time.Since(start)}
	for _, r := range results {
		if len(r.Matches) > 0 {
			sum.Hits = append(sum.Hits, r)
		}
	}
	sort.Slice(sum.Hits, func(a, b int) bool { return sum.Hits[a].Path < sum.Hits[b].Path })
	sort.Slice(skipped, func(a, b int) bool { return skipped[a].Path < skipped[b].Path })
	sum.Skipped = skipped
	return sum, nil
}

// Report converts a summary into its persisted form.
func (s *Scanner) Report(name string, sum *Summary) *ports.ScanReport {
	return &ports.ScanReport{
		Name:       name,
		Strategy:   s.strategy.String(),
		Signatures: len(s.entries),
		Files:      sum.Files,
		Hits:       sum.Hits,
		ElapsedMs:  sum.Elapsed.Milliseconds(),
		CreatedAt:  time.Now().Unix(),
	}
}

// ReportLines renders one line per infected file:
//
//	<path> <signature> <signature>...
//
// with paths cleaned by CleanPath and signatures sorted.
func ReportLines(r *ports.ScanReport) []string {
	lines := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		names := make([]string, 0, len(h.Matches))
		for _, m := range h.Matches {
			names = append(names, m.Signature)
		}
		sort.Strings(names)
		lines = append(lines, CleanPath(h.Path)+" "+strings.Join(names, " "))
	}
	return lines
}

// CleanPath strips leading separators and "../" segments so report paths are
// relative to the scanned tree's parent.
func CleanPath(path string) string {
	sep := string(filepath.Separator)
	up := ".." + sep
	p := strings.TrimLeft(path, sep)
	for strings.HasPrefix(p, up) {
		p = strings.TrimLeft(p[len(up):], sep)
	}
	return p
}

// ReplaceFile updates r after path was rescanned: the file's previous entry is
// dropped and res is inserted if it has matches. A vanished file is passed as
// a result without matches.
func ReplaceFile(r *ports.ScanReport, res ports.FileResult) {
	hits := r.Hits[:0]
	for _, h := range r.Hits {
		if h.Path != res.Path {
			hits = append(hits, h)
		}
	}
	if len(res.Matches) > 0 {
		hits = append(hits, res)
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Path < hits[b].Path })
	r.Hits = hits
	r.CreatedAt = time.Now().Unix()
}
