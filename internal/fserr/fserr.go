// Package fserr defines the closed error taxonomy surfaced by filesystem
// operations. Callers classify failures with errors.Is against the five
// sentinels. Errors from the metadata store and from blob promotion or
// collection are passed up as they are and match none of them.
package fserr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the path resolves to neither a metadata entity nor a
	// staging file, and the operation needs an existing one.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied: a host access check failed, or a create/mkdir would
	// shadow an existing name.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnsupported: the operation is declared not implemented.
	ErrUnsupported = errors.New("operation not supported")

	// ErrInvariant: an internal invariant broke (e.g. a file row references
	// a missing filenode). Surfaced, never masked.
	ErrInvariant = errors.New("invariant violation")

	// ErrIO: underlying host I/O or metadata store failure.
	ErrIO = errors.New("i/o error")
)

// Invariantf wraps ErrInvariant with detail.
func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// IO wraps err as an ErrIO, keeping the cause in the message. Returns nil
// for a nil err.
func IO(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrIO, err)
}
