package match

import "context"

// DefaultWitnessThreshold is the pattern length from which the witness array
// is built in parallel. Below it the goroutine fan-out costs more than the scan.
const DefaultWitnessThreshold = 2500

// Witness holds, for j in 1..⌈m/2⌉, the first offset w (1-based) at which the
// pattern disagrees with itself shifted by j-1 positions:
//
//	pattern[j-1+w-1] != pattern[w-1]
//
// A zero entry means the shift is consistent everywhere, i.e. j-1 is a period.
// Entry 0 is unused and entry 1 (shift zero) is always 0.
type Witness []int

// At returns the witness for a shift of s positions (s >= 1), or 0 when the
// shift is outside the array.
func (w Witness) At(shift int) int {
	j := shift + 1
	if j < 1 || j >= len(w) {
		return 0
	}
	return w[j]
}

// witnessLen is ⌈m/2⌉+1: indices 0..⌈m/2⌉.
func witnessLen(m int) int {
	return (m+1)/2 + 1
}

// BuildWitness computes the witness array of pattern, serially for patterns
// shorter than DefaultWitnessThreshold and on workers goroutines otherwise.
func BuildWitness(ctx context.Context, pattern []byte, workers int) (Witness, error) {
	return buildWitness(ctx, pattern, workers, DefaultWitnessThreshold)
}

func buildWitness(ctx context.Context, pattern []byte, workers, threshold int) (Witness, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	if err := checkWorkers(workers); err != nil {
		return nil, err
	}
	if len(pattern) < threshold || workers == 1 {
		return buildWitnessSerial(pattern), nil
	}
	return buildWitnessParallel(ctx, pattern, workers)
}

func buildWitnessSerial(pattern []byte) Witness {
	wit := make(Witness, witnessLen(len(pattern)))
	fillWitness(pattern, wit, 1, len(wit)-1)
	return wit
}

// buildWitnessParallel splits 1..⌈m/2⌉ into contiguous chunks. The array is
// allocated up front and each task writes only the entries of its own chunk.
func buildWitnessParallel(ctx context.Context, pattern []byte, workers int) (Witness, error) {
	wit := make(Witness, witnessLen(len(pattern)))
	total := len(wit) - 1
	chunk := (total + workers - 1) / workers
	tasks := (total + chunk - 1) / chunk

	err := runPool(ctx, workers, tasks, func(_ context.Context, i int) error {
		lo := 1 + i*chunk
		hi := min(lo+chunk-1, total)
		fillWitness(pattern, wit, lo, hi)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wit, nil
}

// fillWitness computes wit[j] for j in [lo, hi].
func fillWitness(pattern []byte, wit Witness, lo, hi int) {
	m := len(pattern)
	for j := lo; j <= hi; j++ {
		wit[j] = 0
		if j == 1 {
			continue
		}
		shift := j - 1
		for w := 1; w <= m-shift; w++ {
			if pattern[shift+w-1] != pattern[w-1] {
				wit[j] = w
				break
			}
		}
	}
}

// witnessFromRuns derives the witness array in linear time from the prefix
// runs of pattern. It equals buildWitnessSerial and is used to check stored
// tables without the quadratic rescan.
func witnessFromRuns(pattern []byte) Witness {
	m := len(pattern)
	z := prefixRuns(pattern)
	wit := make(Witness, witnessLen(m))
	for j := 2; j < len(wit); j++ {
		if s := j - 1; z[s] < m-s {
			wit[j] = z[s] + 1
		}
	}
	return wit
}

// prefixRuns returns z with z[s] the length of the longest common prefix of
// pattern and pattern[s:].
func prefixRuns(pattern []byte) []int {
	m := len(pattern)
	z := make([]int, m)
	z[0] = m
	for i, l, r := 1, 0, 0; i < m; i++ {
		if i < r {
			z[i] = min(r-i, z[i-l])
		}
		for i+z[i] < m && pattern[z[i]] == pattern[i+z[i]] {
			z[i]++
		}
		if i+z[i] > r {
			l, r = i, i+z[i]
		}
	}
	return z
}
