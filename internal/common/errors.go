// Package common defines sentinel errors shared across the layers of
// filedepot. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrDuplicateHash signals a unique-index violation on the content hash.
	// Two concurrent uploads of identical bytes can both miss the dedup
	// lookup; the losing insert fails with this error and the caller retries
	// the write as an alias instead of surfacing a failure.
	ErrDuplicateHash = errors.New("duplicate content hash")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors.
	ErrNoPayloadOrTarget = errors.New("no payload or reference target provided")
	ErrAliasTarget       = errors.New("reference target is itself an alias")
)
