package actuation

import (
	"context"
	"time"
)

// Backend is the hardware-facing collaborator. Implementations translate the
// calls into a device protocol; they must be safe for concurrent use because
// moves run on their own goroutines.
type Backend interface {
	// SetScalar sets a scalar actuator (vibrate, rotate, ...) to value in [0, 1].
	SetScalar(ctx context.Context, a *Actuator, value float64) error

	// SetLinear moves a position actuator to position in [0, 1], interpolating
	// over duration.
	SetLinear(ctx context.Context, a *Actuator, duration time.Duration, position float64) error
}

// Recorder receives every value the Worker successfully sends to hardware.
type Recorder interface {
	RecordActuatorValue(actuatorID, kind string, value float64)
}

// Logger defines the logging interface used by the engine.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopRecorder struct{}

func (noopRecorder) RecordActuatorValue(string, string, float64) {}
