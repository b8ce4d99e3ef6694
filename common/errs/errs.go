// Package errs defines the error kinds shared by every layer of mstack.
//
// Services return these kinds wrapped with context; the HTTP layer owns the
// single translation from kind to status code. The ingest worker never
// propagates them — it records terminal state on the session instead.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Match with errors.Is.
var (
	// ErrNotFound means the requested record is absent. 404.
	ErrNotFound = errors.New("not found")

	// ErrBadInput is a validation failure on client-supplied data. 400.
	ErrBadInput = errors.New("bad input")

	// ErrBadState means the operation is disallowed by the session state
	// machine. 400.
	ErrBadState = errors.New("bad state")

	// ErrOverflow means a chunk would push total_uploaded past total_size. 400.
	ErrOverflow = errors.New("upload overflow")

	// ErrBadPayload means the probe rejected the file for its declared type.
	ErrBadPayload = errors.New("bad payload")

	// ErrBadCid is a content id parse failure. 400.
	ErrBadCid = errors.New("bad content id")

	// ErrBadCanonical means a value could not be canonically encoded. 400.
	ErrBadCanonical = errors.New("bad canonical encoding")

	// ErrMissingKey means read/delete was called without an id or cid. 400.
	ErrMissingKey = errors.New("must supply id and or cid")

	// ErrAuthFailed means credentials or token were rejected. 401.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrStore is a persistence failure. 500, not retried by handlers.
	ErrStore = errors.New("store error")
)

// Wrap attaches a kind to a formatted message so that errors.Is(err, kind)
// holds while the message stays human-readable.
func Wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{kind}, args...)...)
}

// IsUserError reports whether err is caused by client input rather than the
// system itself.
func IsUserError(err error) bool {
	for _, kind := range []error{
		ErrBadInput, ErrBadState, ErrOverflow, ErrBadPayload,
		ErrBadCid, ErrBadCanonical, ErrMissingKey,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
