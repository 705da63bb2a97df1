package match

import (
	"bytes"
	"context"
	"slices"
)

// nonPeriodic finds every occurrence of a pattern whose witness array has no
// zero entry past index 1 for shifts below ⌊m/2⌋.
//
// Candidate starts [0, n-m] are cut into blocks of ⌊m/2⌋ positions. Any two
// candidates in a block are closer than the pattern's smallest period, so at
// most one of them can be a match, and a duel tournament reduces the block to
// a single survivor that is then checked against the full pattern.
func nonPeriodic(ctx context.Context, text, pattern []byte, wit Witness, workers int) ([]int, error) {
	n, m := len(text), len(pattern)
	if n < m {
		return nil, nil
	}

	last := n - m
	blockSize := max(1, m/2)
	blocks := last/blockSize + 1

	perTask := max(1, blocks/workers)
	tasks := (blocks + perTask - 1) / perTask

	parts := make([][]int, tasks)
	err := runPool(ctx, workers, tasks, func(ctx context.Context, t int) error {
		cands := make([]int, 0, blockSize)
		var found []int
		for b := t * perTask; b < min((t+1)*perTask, blocks); b++ {
			if b%64 == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			start := b * blockSize
			end := min(start+blockSize-1, last)

			cands = cands[:0]
			for c := start; c <= end; c++ {
				cands = append(cands, c)
			}
			s := tournament(text, pattern, wit, cands)
			if bytes.Equal(text[s:s+m], pattern) {
				found = append(found, s)
			}
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

// tournament pairs adjacent candidates round after round until one is left.
// An odd candidate out advances unopposed. cands is reused as the next
// round's storage.
func tournament(text, pattern []byte, wit Witness, cands []int) int {
	for len(cands) > 1 {
		k := 0
		for i := 0; i+1 < len(cands); i += 2 {
			cands[k] = duel(text, pattern, wit, cands[i], cands[i+1])
			k++
		}
		if len(cands)%2 == 1 {
			cands[k] = cands[len(cands)-1]
			k++
		}
		cands = cands[:k]
	}
	return cands[0]
}

// duel decides which of the candidates p < q can still be a match with one
// text comparison. With w the witness of shift q-p, the pattern disagrees
// with itself at w-1, so text[q+w-1] cannot equal both pattern[w-1] (needed
// by q) and pattern[q-p+w-1] (needed by p).
//
// A zero witness gives no evidence and q survives. A witness position past
// the end of text means q cannot hold a full occurrence there, so q loses.
func duel(text, pattern []byte, wit Witness, p, q int) int {
	w := wit.At(q - p)
	if w == 0 {
		return q
	}
	pos := q + w - 1
	if pos >= len(text) {
		return p
	}
	if text[pos] != pattern[w-1] {
		return p
	}
	return q
}
