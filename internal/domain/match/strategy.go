package match

import (
	"context"
	"fmt"
	"strings"
)

// Strategy selects a matching algorithm. The zero value is
// StrategyOptimalParallel.
type Strategy int

const (
	StrategyOptimalParallel Strategy = iota
	StrategySerial
	StrategyBlockParallel
)

// Strategies lists every valid strategy.
var Strategies = []Strategy{StrategyOptimalParallel, StrategySerial, StrategyBlockParallel}

func (s Strategy) String() string {
	switch s {
	case StrategyOptimalParallel:
		return "optimal"
	case StrategySerial:
		return "serial"
	case StrategyBlockParallel:
		return "block"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy resolves a strategy name. Besides the String forms it accepts
// the long names and the historical identifiers match_pattern, kmp_search and
// par_kmp_search.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "optimal", "optimal-parallel", "witness", "match_pattern":
		return StrategyOptimalParallel, nil
	case "serial", "kmp", "kmp_search":
		return StrategySerial, nil
	case "block", "block-parallel", "par-kmp", "par_kmp_search":
		return StrategyBlockParallel, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Run matches pattern in text with strategy s.
func Run(ctx context.Context, s Strategy, text, pattern []byte, workers int) ([]int, error) {
	switch s {
	case StrategySerial:
		if len(pattern) == 0 {
			return nil, ErrEmptyPattern
		}
		return Serial(text, pattern), nil
	case StrategyBlockParallel:
		return BlockParallel(ctx, text, pattern, workers)
	case StrategyOptimalParallel:
		return OptimalParallel(ctx, text, pattern, workers)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
}

// Sliced returns a BlockFunc that runs strategy s on a single block with one
// worker, for use with Blocks when the parallelism lives at the block level.
func (s Strategy) Sliced() BlockFunc {
	return func(ctx context.Context, block, pattern []byte) ([]int, error) {
		return Run(ctx, s, block, pattern, 1)
	}
}

// Set parses name into s. Together with String and Type it lets a Strategy be
// bound directly as a command-line flag value.
func (s *Strategy) Set(name string) error {
	v, err := ParseStrategy(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Type reports the flag value type name.
func (s *Strategy) Type() string { return "strategy" }
