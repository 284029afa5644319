package dispatch

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen marks a call suppressed because the target's breaker is
// open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// UnavailableError is the single outcome callers see when a target cannot
// be reached: never registered, breaker open, or transport failure. Callers
// should not need to distinguish them, all mean "try again later".
type UnavailableError struct {
	Service string
	Reason  error
}

// Error returns a human-readable message naming the service.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("service %q unavailable: %v", e.Service, e.Reason)
}

// Unwrap exposes the underlying reason.
func (e *UnavailableError) Unwrap() error {
	return e.Reason
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
