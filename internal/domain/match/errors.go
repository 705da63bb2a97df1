package match

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for empty patterns and worker counts below one.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyPattern is the invalid-input case for a zero-length pattern.
	ErrEmptyPattern = fmt.Errorf("empty pattern: %w", ErrInvalidInput)

	// ErrWorkerFailure reports that a concurrent task failed and the whole match was aborted.
	ErrWorkerFailure = errors.New("worker failure")

	// ErrUnknownStrategy is returned when a strategy name or value is not recognized.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrAnalysisMismatch is returned when a cached analysis does not fit its pattern.
	ErrAnalysisMismatch = errors.New("analysis does not match pattern")
)

func checkWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("worker count %d: %w", workers, ErrInvalidInput)
	}
	return nil
}
