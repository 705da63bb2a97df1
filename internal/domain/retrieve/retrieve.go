// Package retrieve locates a list of query patterns in one document.
package retrieve

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/corey/pmatch/internal/domain/match"
)

// Result holds the offsets of one pattern.
type Result struct {
	Pattern []byte
	Offsets []int
}

// Line renders the result as "<count> <offset> <offset>...".
func (r Result) Line() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(r.Offsets)))
	for _, off := range r.Offsets {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(off))
	}
	return b.String()
}

// ParsePatterns splits a pattern list into one pattern per line. Trailing
// carriage returns are trimmed and empty lines skipped.
func ParsePatterns(data []byte) [][]byte {
	var out [][]byte
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		out = append(out, line)
	}
	return out
}

// CompileFunc derives the tables of one pattern, typically through a cache.
type CompileFunc func(ctx context.Context, pattern []byte) (*match.Pattern, error)

// Search finds every pattern in doc. Each pattern is compiled once with
// compile (nil means match.Compile), then the document is cut into workers
// blocks and each block is matched with strategy s on a single worker, so
// large documents parallelize the same way under every strategy.
func Search(ctx context.Context, doc []byte, patterns [][]byte, s match.Strategy, workers int, compile CompileFunc) ([]Result, error) {
	if compile == nil {
		compile = func(ctx context.Context, p []byte) (*match.Pattern, error) {
			return match.Compile(ctx, p, match.Options{Workers: workers})
		}
	}
	results := make([]Result, 0, len(patterns))
	for i, p := range patterns {
		offsets, err := searchOne(ctx, doc, p, s, workers, compile)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i+1, err)
		}
		results = append(results, Result{Pattern: p, Offsets: offsets})
	}
	return results, nil
}

func searchOne(ctx context.Context, doc, p []byte, s match.Strategy, workers int, compile CompileFunc) ([]int, error) {
	if len(p) == 0 {
		return nil, match.ErrEmptyPattern
	}
	pt, err := compile(ctx, p)
	if err != nil {
		return nil, err
	}
	return match.Blocks(ctx, doc, pt.Bytes(), workers, pt.Sliced(s))
}
