// Package match implements exact byte-string matching with several
// strategies that share one contract: every call returns the ascending,
// duplicate-free list of zero-based offsets at which the pattern occurs.
//
//   - Serial: single-pass Knuth-Morris-Pratt.
//   - BlockParallel: KMP over overlapping text blocks on a worker pool.
//   - OptimalParallel: witness-based duel tournament for non-periodic
//     patterns and a prefix-and-chain scheme for periodic ones.
//
// Text and pattern are never modified. The per-pattern tables (failure
// function, witness array, period) are built once by Compile and can be
// reused for any number of texts or persisted through Analysis.
package match

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"github.com/corey/pmatch/internal/ports"
)

// Options tunes a compiled pattern. Zero fields take their defaults.
type Options struct {
	Workers          int // worker pool size; 0 = GOMAXPROCS
	WitnessThreshold int // pattern length at which the witness array is built in parallel
	SmallPeriod      int // periods below this use block-parallel KMP
}

func (o Options) normalize() (Options, error) {
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if err := checkWorkers(o.Workers); err != nil {
		return o, err
	}
	if o.WitnessThreshold <= 0 {
		o.WitnessThreshold = DefaultWitnessThreshold
	}
	if o.SmallPeriod <= 0 {
		o.SmallPeriod = DefaultSmallPeriod
	}
	return o, nil
}

// Pattern is a pattern with its derived tables. It is safe for concurrent use.
type Pattern struct {
	raw    []byte
	lps    []int
	wit    Witness
	period int
	opts   Options
}

// Compile derives the failure function, witness array and period of pattern.
func Compile(ctx context.Context, pattern []byte, opts Options) (*Pattern, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	wit, err := buildWitness(ctx, pattern, opts.Workers, opts.WitnessThreshold)
	if err != nil {
		return nil, fmt.Errorf("witness: %w", err)
	}
	return &Pattern{
		raw:    bytes.Clone(pattern),
		lps:    failureFunction(pattern),
		wit:    wit,
		period: DetectPeriod(wit),
		opts:   opts,
	}, nil
}

// FromAnalysis rebuilds a compiled pattern from tables produced earlier by
// (*Pattern).Analysis, typically loaded from a cache. Both tables are
// recomputed in linear time and must equal the stored ones entry for entry;
// ErrAnalysisMismatch is returned if they do not.
func FromAnalysis(pattern []byte, a *ports.PatternAnalysis, opts Options) (*Pattern, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	m := len(pattern)
	switch {
	case a == nil:
		return nil, fmt.Errorf("nil analysis: %w", ErrAnalysisMismatch)
	case a.Length != m, len(a.LPS) != m, len(a.Witness) != witnessLen(m):
		return nil, fmt.Errorf("length %d, tables %d/%d: %w", m, len(a.LPS), len(a.Witness), ErrAnalysisMismatch)
	case DetectPeriod(a.Witness) != a.Period:
		return nil, fmt.Errorf("period %d: %w", a.Period, ErrAnalysisMismatch)
	}
	lps := failureFunction(pattern)
	if i := firstDiff(lps, a.LPS); i >= 0 {
		return nil, fmt.Errorf("failure function at %d: %w", i, ErrAnalysisMismatch)
	}
	wit := witnessFromRuns(pattern)
	if j := firstDiff(wit, a.Witness); j >= 0 {
		return nil, fmt.Errorf("witness at %d: %w", j, ErrAnalysisMismatch)
	}
	return &Pattern{
		raw:    bytes.Clone(pattern),
		lps:    lps,
		wit:    wit,
		period: a.Period,
		opts:   opts,
	}, nil
}

// firstDiff returns the first index at which a and b differ, or -1. Both have
// the same length.
func firstDiff(a, b []int) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}

// Analysis returns the derived tables for persistence. The slices are shared
// with the pattern and must not be modified.
func (pt *Pattern) Analysis() *ports.PatternAnalysis {
	return &ports.PatternAnalysis{
		Length:  len(pt.raw),
		LPS:     pt.lps,
		Witness: pt.wit,
		Period:  pt.period,
	}
}

// Bytes returns the pattern. The slice must not be modified.
func (pt *Pattern) Bytes() []byte { return pt.raw }

// Len returns the pattern length.
func (pt *Pattern) Len() int { return len(pt.raw) }

// Period returns the smallest period, or 0 for a non-periodic pattern.
func (pt *Pattern) Period() int { return pt.period }

// Witness returns the witness array. The slice must not be modified.
func (pt *Pattern) Witness() Witness { return pt.wit }

// Route names the algorithm Match uses for this pattern.
func (pt *Pattern) Route() string {
	switch {
	case pt.period == 0:
		return "non-periodic"
	case pt.period < pt.opts.SmallPeriod:
		return "periodic (small period, block-parallel kmp)"
	default:
		return "periodic"
	}
}

// Match returns all offsets of the pattern in text using the witness-based
// algorithm.
func (pt *Pattern) Match(ctx context.Context, text []byte) ([]int, error) {
	return pt.optimal(ctx, text, pt.opts.Workers)
}

// MatchWith runs strategy s with the pattern's precomputed tables.
func (pt *Pattern) MatchWith(ctx context.Context, s Strategy, text []byte) ([]int, error) {
	return pt.run(ctx, s, text, pt.opts.Workers)
}

// Sliced returns a BlockFunc that runs strategy s on one block with a single
// worker, reusing the pattern's tables. The pattern argument of the BlockFunc
// is ignored.
func (pt *Pattern) Sliced(s Strategy) BlockFunc {
	return func(ctx context.Context, block, _ []byte) ([]int, error) {
		return pt.run(ctx, s, block, 1)
	}
}

func (pt *Pattern) run(ctx context.Context, s Strategy, text []byte, workers int) ([]int, error) {
	switch s {
	case StrategySerial:
		return SerialLPS(text, pt.raw, pt.lps), nil
	case StrategyBlockParallel:
		return pt.blockParallel(ctx, text, workers)
	case StrategyOptimalParallel:
		return pt.optimal(ctx, text, workers)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
}

func (pt *Pattern) optimal(ctx context.Context, text []byte, workers int) ([]int, error) {
	if len(text) < len(pt.raw) {
		return nil, nil
	}
	if pt.period == 0 {
		return nonPeriodic(ctx, text, pt.raw, pt.wit, workers)
	}
	return pt.periodic(ctx, text, workers)
}

func (pt *Pattern) blockParallel(ctx context.Context, text []byte, workers int) ([]int, error) {
	return Blocks(ctx, text, pt.raw, workers, func(_ context.Context, block, p []byte) ([]int, error) {
		return SerialLPS(block, p, pt.lps), nil
	})
}

// OptimalParallel returns all offsets of pattern in text, choosing between
// the non-periodic and periodic algorithms from the pattern's witness array.
func OptimalParallel(ctx context.Context, text, pattern []byte, workers int) ([]int, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	if err := checkWorkers(workers); err != nil {
		return nil, err
	}
	if len(text) < len(pattern) {
		return nil, nil
	}
	pt, err := Compile(ctx, pattern, Options{Workers: workers})
	if err != nil {
		return nil, err
	}
	return pt.Match(ctx, text)
}
