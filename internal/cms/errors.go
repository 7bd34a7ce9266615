package cms

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the CMS has no record for the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrDecode is returned when the CMS responds 200 but the payload is
	// empty or not the expected envelope. Permanent: retrying the same
	// request would yield the same malformed body.
	ErrDecode = errors.New("malformed response payload")

	// ErrUnhealthy is returned when the CMS did not become reachable within
	// the wait window.
	ErrUnhealthy = errors.New("cms not healthy")
)

// Error describes a failed CMS operation. Status is the upstream HTTP status
// code, zero when the request never completed. Retryable failures are
// additionally wrapped in domain.RetryableError by the client, so callers
// classify with domain.IsRetryable and dig out *Error with errors.As when
// they need the status code.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cms: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("cms: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the upstream HTTP status carried by err, or zero when err
// did not originate from a completed CMS request.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
