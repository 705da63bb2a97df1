package cmd

import (
	"errors"
	"fmt"
)

// exitError is returned by commands to signal a specific exit code without an
// error message. grep convention: 0=found, 1=not found, 2=error.
type exitError struct{ code int }

func (e exitError) Error() string {
	switch e.code {
	case 0:
		return ""
	case 1:
		return "no match"
	default:
		return fmt.Sprintf("exit %d", e.code)
	}
}

// errNoMatch makes the process exit 1 quietly.
var errNoMatch = exitError{code: 1}

// ExitCode extracts the exit code from an exitError.
// Returns -1 if the error is not an exitError.
func ExitCode(err error) int {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return -1
}
