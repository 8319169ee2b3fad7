package lua

import "errors"

var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call exceeds its timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrBadScript is returned when a plugin file does not return a
	// plugin table.
	ErrBadScript = errors.New("lua plugin must return a table")
)
