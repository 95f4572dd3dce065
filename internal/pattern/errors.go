package pattern

import "errors"

// Domain errors for the pattern package.
var (
	// ErrDisabled is returned when no patterns directory is configured.
	ErrDisabled = errors.New("pattern: scripts disabled")

	// ErrInvalidName is returned for names that are not a plain <name>.lua file.
	ErrInvalidName = errors.New("pattern: invalid script name")

	// ErrNotFound is returned when the script file does not exist.
	ErrNotFound = errors.New("pattern: script not found")

	// ErrScriptFailed is returned when the script raises an error.
	ErrScriptFailed = errors.New("pattern: script failed")

	// ErrTimeout is returned when the script exceeds its time budget.
	ErrTimeout = errors.New("pattern: script timed out")

	// ErrTooManyPoints is returned when the script emits more points than allowed.
	ErrTooManyPoints = errors.New("pattern: too many points")

	// ErrOutOfOrder is returned when a point is earlier than the previous one.
	ErrOutOfOrder = errors.New("pattern: points out of order")
)
