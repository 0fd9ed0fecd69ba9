package models

import "errors"

// Core error taxonomy. Handlers map these onto HTTP statuses; services
// and repositories wrap them with context via fmt.Errorf and %w.
var (
	// ErrDuplicateSuppressed means a trigger arrived while the user already
	// had an active incident. Benign: the caller receives the existing id.
	ErrDuplicateSuppressed = errors.New("duplicate trigger suppressed")

	// ErrInvalidState means an illegal state-machine transition was attempted,
	// e.g. resolving an incident that is already terminal.
	ErrInvalidState = errors.New("invalid incident state transition")

	// ErrInvalidRule means a reminder schedule rule failed validation.
	ErrInvalidRule = errors.New("invalid reminder rule")

	// ErrNotFound is returned by repositories when no document matches.
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps store failures on the ingress path. The whole
	// ingress call must be retried by the client; dedup keys keep the
	// retry safe.
	ErrPersistence = errors.New("persistence failure")
)
