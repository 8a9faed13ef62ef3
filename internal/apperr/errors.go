// Package apperr defines the sentinel errors shared across the pipeline.
package apperr

import "errors"

var (
	// ErrValidation covers malformed paths, empty batches, and bad identities.
	// Nothing is persisted when a request fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a remove target matches no stored note.
	ErrNotFound = errors.New("not found")

	// ErrRender marks a single-note render failure. It is recovered locally
	// with degraded output and never aborts a batch.
	ErrRender = errors.New("render failed")

	// ErrPersistence is fatal for the request: the previous ledger and
	// previously published pages remain authoritative.
	ErrPersistence = errors.New("persistence failed")

	// ErrCryptoUnavailable is surfaced when an encryption primitive cannot
	// be constructed. Plaintext is never stored as a fallback.
	ErrCryptoUnavailable = errors.New("crypto unavailable")
)
