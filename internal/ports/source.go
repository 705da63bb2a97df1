package ports

// Source provides an immutable byte buffer to the matching engine. The engine
// never performs I/O itself; file reading, mapping or in-memory assembly
// happens behind this interface.
type Source interface {
	// Name identifies the source in reports (file path or label).
	Name() string

	// Bytes returns the content. The buffer must not be modified and is valid
	// until Close.
	Bytes() []byte

	// Close releases the buffer (unmaps a mapped file). Safe to call twice.
	Close() error
}
