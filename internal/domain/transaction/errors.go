package transaction

import (
	"fmt"
	"strings"
)

// The error variants below form a closed set. Callers dispatch with
// errors.As on the concrete types, never by inspecting message text.

// ValidationError reports every violated field of a write payload.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// DuplicateKeyError signals that an idempotency key already has a
// committed row. It is resolved internally by the write guard and is
// never surfaced to API callers as an error.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate idempotency key %q", e.Key)
}

// NotFoundError signals an unknown transaction id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found", e.ID)
}

// TransientError wraps a backend failure that is safe for clients to
// retry (the write either did not commit, or committed under a key the
// retry will collapse against).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
