package match

import (
	"bytes"
	"context"
	"slices"
)

// DefaultSmallPeriod is the period below which periodic patterns are matched
// with block-parallel KMP instead of the prefix-and-chain algorithm.
const DefaultSmallPeriod = 5

// periodic matches a pattern with smallest period p, written P = u^k v with
// |u| = p, k = ⌊m/p⌋ and |v| < p.
//
// The aperiodic prefix P[:2p-1] is located with the duel tournament. A prefix
// hit s is kept when u·u·v starts at s. P then occurs at s exactly when the
// k-1 positions s, s+p, ..., s+(k-2)p are all kept, which is found by walking
// every residue class mod p from the top down and counting consecutive hits.
func (pt *Pattern) periodic(ctx context.Context, text []byte, workers int) ([]int, error) {
	n, m, p := len(text), len(pt.raw), pt.period
	if p < pt.opts.SmallPeriod {
		return pt.blockParallel(ctx, text, workers)
	}

	k := m / p
	u := pt.raw[:p]
	v := pt.raw[k*p:]

	// The witness of P is valid for its prefix: for shifts below p the first
	// disagreement of P with itself lies within the first 2p-1 bytes.
	cands, err := nonPeriodic(ctx, text, pt.raw[:2*p-1], pt.wit, workers)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}

	hit := make([]bool, n)
	chunk := (len(cands) + workers - 1) / workers
	tasks := (len(cands) + chunk - 1) / chunk
	err = runPool(ctx, workers, tasks, func(_ context.Context, t int) error {
		for _, s := range cands[t*chunk : min((t+1)*chunk, len(cands))] {
			end := s + 2*p + len(v)
			if end > n {
				continue
			}
			hit[s] = bytes.Equal(text[s:s+p], u) &&
				bytes.Equal(text[s+p:s+2*p], u) &&
				bytes.Equal(text[s+2*p:end], v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	residueWorkers := min(workers, p)
	per := (p + residueWorkers - 1) / residueWorkers
	tasks = (p + per - 1) / per
	parts := make([][]int, tasks)
	err = runPool(ctx, residueWorkers, tasks, func(_ context.Context, t int) error {
		var found []int
		for i := t * per; i < min((t+1)*per, p); i++ {
			found = chainResidue(hit, i, p, k, found)
		}
		parts[t] = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := concat(parts)
	slices.Sort(out)
	return out, nil
}

// chainResidue appends to out every position i + l*p that starts a run of at
// least k-1 hits spaced p apart.
func chainResidue(hit []bool, i, p, k int, out []int) []int {
	n := len(hit)
	if i >= n {
		return out
	}
	run := 0
	for idx := i + (n-1-i)/p*p; idx >= i; idx -= p {
		if hit[idx] {
			run++
		} else {
			run = 0
		}
		if run >= k-1 {
			out = append(out, idx)
		}
	}
	return out
}
