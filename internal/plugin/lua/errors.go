package lua

import "errors"

// Errors for Lua plugins.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call runs longer than the
	// configured limit.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNoScript is returned when a plugin directory has no script for the
	// module.
	ErrNoScript = errors.New("lua script not found")
)
