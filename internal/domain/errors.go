package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id is not present in the current
	// snapshot or in the CMS.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidStatus is returned when a status value is not one of the
	// canonical workflow stages.
	ErrInvalidStatus = errors.New("invalid workflow status")

	// ErrTerminalStatus is returned when a transition is requested out of a
	// terminal stage.
	ErrTerminalStatus = errors.New("job is in a terminal status")

	// ErrNoAdjacentStage is returned when a next/prev walk runs off either end
	// of the workflow.
	ErrNoAdjacentStage = errors.New("no adjacent workflow stage")

	// ErrMutationNotFound is returned when an outbox mutation cannot be found.
	ErrMutationNotFound = errors.New("mutation not found")

	// ErrMutationClaimed is returned when attempting to claim an outbox
	// mutation that another worker already holds.
	ErrMutationClaimed = errors.New("mutation already claimed or not pending")

	// ErrMaxAttemptsExceeded is returned when a mutation has exhausted its
	// replay attempts.
	ErrMaxAttemptsExceeded = errors.New("max replay attempts exceeded")
)

// RetryableError wraps transient failures that should be retried later, such
// as CMS timeouts or 5xx responses.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as retryable.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err (or anything it wraps) is retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
