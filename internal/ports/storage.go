// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// Storage persists pattern analyses and scan reports to durable storage.
// Concurrent reads are safe; writes are serialized by the adapter.
//
// Crash safety: every Save must be transactional. A crash mid-write must not
// corrupt previously committed data.
type Storage interface {
	// SaveAnalysis stores the derived tables of a pattern under key.
	// Overwrites any prior analysis for this key.
	SaveAnalysis(key string, a *PatternAnalysis) error

	// LoadAnalysis retrieves the analysis stored under key.
	// Returns nil, nil if the key is unknown.
	LoadAnalysis(key string) (*PatternAnalysis, error)

	// SaveReport persists a scan report under report.Name.
	SaveReport(report *ScanReport) error

	// LoadReport retrieves a scan report by name.
	// Returns nil, nil if no report exists.
	LoadReport(name string) (*ScanReport, error)

	// DeleteReport removes a stored report.
	// Idempotent: deleting a nonexistent report is not an error.
	DeleteReport(name string) error
}
