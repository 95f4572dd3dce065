package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrInvalidRequest is returned for malformed or inconsistent requests.
	ErrInvalidRequest = errors.New("dispatch: invalid request")

	// ErrUnknownActuator is returned when a request names an actuator or
	// device that is not configured.
	ErrUnknownActuator = errors.New("dispatch: unknown actuator")

	// ErrKindMismatch is returned when an actuator cannot play the mode,
	// e.g. a vibrator in a linear request.
	ErrKindMismatch = errors.New("dispatch: actuator kind does not match mode")

	// ErrPatternsUnavailable is returned when a request names a pattern
	// script but no generator is configured.
	ErrPatternsUnavailable = errors.New("dispatch: pattern scripts unavailable")

	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatch: service closed")
)
