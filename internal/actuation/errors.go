package actuation

import "errors"

// Domain errors for the actuation package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, actuation.ErrHardwareCommandFailed) {
//	    // the backend rejected a stop or move
//	}
var (
	// ErrHardwareCommandFailed is returned when the backend fails a command
	// whose result is propagated (final stop to zero, position moves).
	// It is always wrapped together with the actuator identifier and the cause.
	ErrHardwareCommandFailed = errors.New("actuation: hardware command failed")

	// ErrChannelClosed is returned when the peer goroutine is gone, e.g. the
	// Worker exited while a player was waiting for a result.
	ErrChannelClosed = errors.New("actuation: channel closed")

	// ErrUnknownHandle is logged when a stop is requested for a handle that
	// is not (or no longer) registered.
	ErrUnknownHandle = errors.New("actuation: unknown handle")

	// ErrDuplicateActuator is returned when two axes of a device would share
	// an identifier, e.g. a scalar "rotate" channel and a rotate axis.
	ErrDuplicateActuator = errors.New("actuation: duplicate actuator")

	// ErrPlayerConsumed is returned when a player is played more than once.
	ErrPlayerConsumed = errors.New("actuation: player already played")
)

// errWorkerStarted is returned by Run when the Worker is already running.
var errWorkerStarted = errors.New("actuation: worker already started")
