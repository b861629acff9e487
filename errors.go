package inventory

import (
	"errors"
	"fmt"

	"goflare.io/inventory/lock"
)

var (
	// ErrNotFound marks a referenced order, stock entry, product or
	// warehouse that does not exist. Not retryable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition marks an order status change the lifecycle does
	// not allow, e.g. fulfilling an already fulfilled order.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrLockTimeout is returned when the coordinator could not acquire the
	// stock locks in time. Nothing was mutated; the caller may resubmit.
	ErrLockTimeout = lock.ErrTimeout
)

// ValidationError is a client-correctable input problem: missing warehouse,
// non-positive quantity, unknown or insufficient stock. The reason names the
// offending product or warehouse where applicable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
