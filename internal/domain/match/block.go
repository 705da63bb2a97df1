package match

import (
	"context"
	"slices"
)

// BlockFunc matches pattern inside one block of text and returns offsets
// relative to the start of block.
type BlockFunc func(ctx context.Context, block, pattern []byte) ([]int, error)

// BlockParallel splits text into workers blocks and runs the KMP matcher on
// each block concurrently. The failure table is built once and shared.
func BlockParallel(ctx context.Context, text, pattern []byte, workers int) ([]int, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	lps := failureFunction(pattern)
	return Blocks(ctx, text, pattern, workers, func(_ context.Context, block, p []byte) ([]int, error) {
		return SerialLPS(block, p, lps), nil
	})
}

// Blocks partitions the candidate start positions [0, n) of text into workers
// contiguous ranges and applies fn to each range concurrently.
//
// Every range except the last is read with m-1 extra bytes so a match starting
// at its final position is still visible to fn. Offsets that fall in that
// overlap belong to the next range and are dropped, so ranges never report the
// same start and the merge needs no deduplication.
func Blocks(ctx context.Context, text, pattern []byte, workers int, fn BlockFunc) ([]int, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	if err := checkWorkers(workers); err != nil {
		return nil, err
	}
	n, m := len(text), len(pattern)
	if n < m {
		return nil, nil
	}

	if workers > n {
		workers = n
	}
	size := n / workers

	parts := make([][]int, workers)
	err := runPool(ctx, workers, workers, func(ctx context.Context, i int) error {
		start := i * size
		end := start + size
		dataEnd := end + m - 1
		if i == workers-1 {
			end, dataEnd = n, n
		}
		if dataEnd > n {
			dataEnd = n
		}
		if dataEnd-start < m {
			return nil
		}

		offsets, err := fn(ctx, text[start:dataEnd], pattern)
		if err != nil {
			return err
		}
		var kept []int
		for _, off := range offsets {
			if off >= 0 && start+off < end {
				kept = append(kept, start+off)
			}
		}
		parts[i] = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := concat(parts)
	slices.Sort(out)
	return out, nil
}
