package ports

// PatternAnalysis holds the per-pattern tables of the matching engine. They
// depend only on the pattern bytes, so they can be computed once and reused
// for every text the pattern is matched against.
type PatternAnalysis struct {
	Length  int   // pattern length m
	LPS     []int // KMP failure function, m entries
	Witness []int // witness array, ⌈m/2⌉+1 entries, index 0 unused
	Period  int   // smallest period, 0 when non-periodic
}

// ScanReport is the persisted outcome of one signature scan over a tree.
type ScanReport struct {
	Name       string       // report key, usually the scanned root
	Strategy   string       // matching strategy used
	Signatures int          // number of signatures loaded
	Files      int          // number of files scanned
	Hits       []FileResult // files with at least one signature, sorted by path
	ElapsedMs  int64
	CreatedAt  int64 // unix seconds
}

// FileResult lists the signatures found in one file.
type FileResult struct {
	Path    string
	Matches []SignatureMatch // sorted by signature name
}

// SignatureMatch is one signature found in a file with all its offsets.
type SignatureMatch struct {
	Signature string
	Offsets   []int
}
