package domain

import (
	"context"
	"errors"
	"net"
)

// MediaError is the closed set of failure kinds a data source may surface.
// Backend-specific failures (HTTP statuses, parse errors, timeouts) are
// translated into one of these at the client boundary; the router and
// callers above it only ever see the normalized kind.
type MediaError int

const (
	// ErrNotImplemented indicates the backend does not support this operation
	ErrNotImplemented MediaError = iota

	// ErrIO indicates an I/O failure, including network transport errors and timeouts
	ErrIO

	// ErrAuthenticationRequired indicates the backend rejected the request with 401
	// and no valid token could be obtained
	ErrAuthenticationRequired

	// ErrInvalidCredentials indicates the backend rejected the configured credentials (403)
	ErrInvalidCredentials

	// ErrNotFound indicates the item does not exist, or no provider owns the URI
	ErrNotFound

	// ErrAlreadyExists indicates a write conflicted with an existing value
	ErrAlreadyExists

	// ErrDeserialization indicates the backend returned a response that could not be parsed
	ErrDeserialization

	// ErrCancelled indicates caller-initiated cancellation, not a backend fault
	ErrCancelled
)

// String returns a human-readable representation of the error kind
func (e MediaError) String() string {
	switch e {
	case ErrNotImplemented:
		return "not implemented"
	case ErrIO:
		return "i/o error"
	case ErrAuthenticationRequired:
		return "authentication required"
	case ErrInvalidCredentials:
		return "invalid credentials"
	case ErrNotFound:
		return "not found"
	case ErrAlreadyExists:
		return "already exists"
	case ErrDeserialization:
		return "deserialization error"
	case ErrCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error implements the error interface so a MediaError can travel in a
// wrapped chain and be recovered with errors.As.
func (e MediaError) Error() string { return e.String() }

// KindOf normalizes an arbitrary error into a MediaError. A MediaError
// anywhere in the chain wins; context cancellation maps to ErrCancelled;
// everything else, including net timeouts, is classified as ErrIO.
func KindOf(err error) MediaError {
	var kind MediaError
	if errors.As(err, &kind) {
		return kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrIO
	}
	return ErrIO
}
