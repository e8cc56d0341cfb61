package domain

import "errors"

// Engine errors returned by the public API; check with errors.Is.
var (
	// ErrAlreadyRunning is returned for invalid lifecycle transitions on
	// a running engine.
	ErrAlreadyRunning = errors.New("couchsync: already running")

	// ErrNotRunning is returned when an operation requires a running engine.
	ErrNotRunning = errors.New("couchsync: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("couchsync: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("couchsync: invalid configuration")

	// ErrUnknownDomain is returned when a sync is requested for a domain
	// with no registered adapter.
	ErrUnknownDomain = errors.New("couchsync: unknown domain")

	// ErrNoSession is returned by remote calls attempted without an
	// authenticated session.
	ErrNoSession = errors.New("couchsync: no authenticated session")
)
