package mainloop

import "errors"

// Loop errors.
var (
	// ErrAlreadyRunning indicates Run was called on a loop that is running.
	ErrAlreadyRunning = errors.New("main loop already running")

	// ErrConditionTimeout indicates RunUntil gave up before its condition held.
	ErrConditionTimeout = errors.New("main loop condition not reached")
)
