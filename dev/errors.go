package dev

import "errors"

// Errors returned by lifecycle operations. Callers classify failures with
// errors.Is; the concrete message carries the operation detail.
var (
	// ErrInvalidArgs indicates a malformed request. It is always returned
	// before any shared state is mutated.
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrBadState indicates an operation attempted outside its valid
	// lifecycle window.
	ErrBadState = errors.New("bad state")

	// ErrNotFound indicates an id or name lookup that missed.
	ErrNotFound = errors.New("not found")

	// ErrIoRefused indicates the coordinator channel is unavailable. The
	// failure is always recoverable by the caller.
	ErrIoRefused = errors.New("io refused")

	// ErrNotSupported is the fallback result for capability-table hooks
	// that the driver did not supply.
	ErrNotSupported = errors.New("not supported")
)
