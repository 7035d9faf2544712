// Package apperr defines the error taxonomy shared by both gateways.
package apperr

import "errors"

var (
	// ErrUnauthenticated means the bearer credential was missing, malformed or
	// expired. No operation side effects may have occurred.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrValidation means the input was rejected before any mutation.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound covers both a genuinely missing record and a Forbidden that
	// was collapsed at the boundary so non-participants cannot confirm a
	// conversation exists.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is only surfaced where existence is not a secret, e.g. the
	// not-matched precondition on starting a conversation.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable means the store could not complete the operation. The
	// operation was never partially applied.
	ErrUnavailable = errors.New("service unavailable")
)
