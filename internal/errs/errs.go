// Package errs defines sentinel errors shared across components.
//
// Every error crossing a component boundary in this project is a value built
// on one of these sentinels; callers classify with errors.Is and render the
// message themselves.
package errs

import "errors"

var (
	// ErrNotFound reports an absent key, counter, or push record.
	ErrNotFound = errors.New("not found")

	// ErrTombstoned reports a key that was explicitly deleted, as opposed
	// to one that never existed.
	ErrTombstoned = errors.New("deleted")

	// ErrProfileNotFound reports a missing or deleted profile.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrCounterUnregistered reports a registration refused because the
	// counter was explicitly unregistered earlier.
	ErrCounterUnregistered = errors.New("counter unregistered")

	// ErrTypeMismatch reports a re-registration with a different type than
	// the persisted record.
	ErrTypeMismatch = errors.New("counter type mismatch")

	// ErrInvalidArgument reports malformed or missing operator input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedProtocol reports a push protocol outside {udp, tcp}.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrAlreadyRunning reports an idempotent setup hitting a live worker.
	ErrAlreadyRunning = errors.New("already running")

	// ErrDuplicateInstance reports a supervisor refusing to start a second
	// worker under an instance name already in use.
	ErrDuplicateInstance = errors.New("duplicate instance name")
)
