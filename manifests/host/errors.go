package host

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a repository, branch,
	// path, or pull request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient marks host or network failures that may
	// succeed when retried.
	ErrTransient = errors.New("transient host failure")

	// ErrNonFastForward marks a reference write that
	// collided with a concurrent reference state.
	ErrNonFastForward = errors.New("not a fast forward")

	// ErrPermission marks a request the identity is not
	// allowed to make.
	ErrPermission = errors.New("insufficient permission")

	// ErrAlreadyExists marks a create request whose target
	// already exists.
	ErrAlreadyExists = errors.New("already exists")
)

// IsNotFound reports whether err is classified as
// ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermission reports whether err is classified as
// ErrPermission.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsRetryable reports whether a failed request is worth
// another attempt: transient failures and non-fast-forward
// reference collisions. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return errors.Is(err, ErrTransient) ||
		errors.Is(err, ErrNonFastForward)
}
