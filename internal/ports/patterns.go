package ports

// PatternMatcher reports which of a fixed set of byte patterns occur in a
// buffer, using multi-pattern matching (Aho-Corasick). A single pass finds
// every pattern regardless of set size: O(n + m + z) where n=data length,
// m=total pattern length, z=number of matches.
//
// It is a prefilter: it answers presence only. Offsets are computed by the
// exact matching engine for the patterns it reports.
type PatternMatcher interface {
	// Present returns the indexes (into the pattern set the matcher was built
	// from) of every pattern that occurs in data, ascending and unique.
	// Returns nil if none occur.
	Present(data []byte) []int

	// Len returns the number of patterns in the set.
	Len() int
}
