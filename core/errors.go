package core

import "errors"

// Lifecycle errors surfaced to callers of Run. Per-connection failures never
// show up here; those are converted into error responses on the connection
// that caused them.
var (
	// ErrTerminated rejects Run on a terminated server. Termination is
	// terminal: the socket is closed and never reopened.
	ErrTerminated = errors.New("server terminated: operation not permitted")

	// ErrAlreadyRunning rejects Run while the accept loop is active
	ErrAlreadyRunning = errors.New("server already running")
)
