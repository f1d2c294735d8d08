package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ErrInvalidArgument marks an out-of-range enum from the game, such as
// an unknown chart or medal. Fatal to the request; never masked as
// success.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNoProfile marks a RefID or ExtID that resolved to no profile where
// one was required. Surfaces as a status-tagged reply, not a transport
// error.
var ErrNoProfile = errors.New("no profile")

// ErrRepositoryUnavailable marks an upstream I/O failure. Partial
// monotone writes already committed are acceptable.
var ErrRepositoryUnavailable = errors.New("repository unavailable")

// ErrDeadlineExceeded marks a request that ran past the transport
// deadline.
var ErrDeadlineExceeded = errors.New("deadline exceeded")
