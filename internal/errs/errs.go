// Package errs holds the sentinel errors shared by the sampling, comparison and
// watchdog packages. Wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound indicates that a required pid is not alive.
	ErrNotFound = errors.New("process not found")

	// ErrValidation indicates malformed parameters (zero iterations, empty pid list, ...).
	ErrValidation = errors.New("validation failed")

	// ErrActionExecution indicates that a watchdog action failed at the OS boundary.
	ErrActionExecution = errors.New("action execution failed")

	// ErrCancelled indicates that the caller aborted a bounded operation.
	ErrCancelled = errors.New("cancelled")

	// ErrProcessEnded indicates that the target exited during a live loop.
	ErrProcessEnded = errors.New("process ended")
)
