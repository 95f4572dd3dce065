package dispatch

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
)

// Mode selects how a request is played.
type Mode string

const (
	// ModeScalar holds scalar actuators at a constant speed.
	ModeScalar Mode = "scalar"
	// ModePattern drives scalar actuators along a waveform.
	ModePattern Mode = "pattern"
	// ModeLinear moves position actuators through a waveform.
	ModeLinear Mode = "linear"
	// ModePosition moves position actuators to a single position.
	ModePosition Mode = "position"
)

// linear reports whether the mode drives position actuators.
func (m Mode) linear() bool {
	return m == ModeLinear || m == ModePosition
}

// State is the lifecycle state of a dispatch.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

// Request is a dispatch request as received over MQTT or HTTP.
//
//	{"mode":"pattern","actuators":["Edge"],"duration_ms":60000,
//	 "speed":80,"pattern":"waves.lua"}
type Request struct {
	// RequestID is an optional caller reference echoed in status messages.
	RequestID string `json:"request_id,omitempty"`
	Mode      Mode   `json:"mode"`
	// Actuators are identifiers ("Edge (vibrate #1)") or device names.
	Actuators []string `json:"actuators"`
	// DurationMS of 0 plays the waveform once, or until stopped for scalar.
	DurationMS int64 `json:"duration_ms"`
	// Speed is a percentage. Scalar mode holds it, pattern mode scales the
	// waveform by it. Defaults to 100.
	Speed *int `json:"speed,omitempty"`
	// Position is the target percentage for position mode.
	Position *int               `json:"position,omitempty"`
	Waveform actuation.Waveform `json:"waveform,omitempty"`
	// Pattern names a Lua script generating the waveform.
	Pattern string `json:"pattern,omitempty"`
}

// maxMS is the longest millisecond value that fits in a time.Duration.
const maxMS = math.MaxInt64 / int64(time.Millisecond)

// Validate checks the request shape. Actuator names are checked when they
// are resolved against the catalogue.
func (r *Request) Validate() error {
	switch r.Mode {
	case ModeScalar, ModePattern, ModeLinear, ModePosition:
	case "":
		return fmt.Errorf("%w: mode is required", ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}

	if len(r.Actuators) == 0 {
		return fmt.Errorf("%w: at least one actuator is required", ErrInvalidRequest)
	}
	if r.DurationMS < 0 {
		return fmt.Errorf("%w: duration_ms must not be negative", ErrInvalidRequest)
	}
	if r.DurationMS > maxMS {
		return fmt.Errorf("%w: duration_ms must not exceed %d", ErrInvalidRequest, maxMS)
	}

	switch r.Mode {
	case ModePattern, ModeLinear:
		if len(r.Waveform) == 0 && r.Pattern == "" {
			return fmt.Errorf("%w: %s mode needs a waveform or a pattern", ErrInvalidRequest, r.Mode)
		}
		if len(r.Waveform) > 0 && r.Pattern != "" {
			return fmt.Errorf("%w: waveform and pattern are mutually exclusive", ErrInvalidRequest)
		}
		if err := validateWaveform(r.Waveform); err != nil {
			return err
		}
	case ModePosition:
		if r.Position == nil {
			return fmt.Errorf("%w: position mode needs a position", ErrInvalidRequest)
		}
	}
	return nil
}

func validateWaveform(w actuation.Waveform) error {
	for i, p := range w {
		if p.AtMS < 0 {
			return fmt.Errorf("%w: waveform[%d] has a negative timestamp", ErrInvalidRequest, i)
		}
		if int64(p.AtMS) > maxMS {
			return fmt.Errorf("%w: waveform[%d] timestamp is too large", ErrInvalidRequest, i)
		}
		if i > 0 && p.AtMS < w[i-1].AtMS {
			return fmt.Errorf("%w: waveform[%d] is out of time order", ErrInvalidRequest, i)
		}
	}
	return nil
}

// speed returns the requested speed, defaulting to 100%.
func (r *Request) speed() actuation.Speed {
	if r.Speed == nil {
		return actuation.MaxSpeed()
	}
	return actuation.NewSpeed(*r.Speed)
}

// duration resolves the play duration. Zero means one pass of the waveform
// for waveform modes and Forever for scalar mode.
func (r *Request) duration(waveform actuation.Waveform) time.Duration {
	if r.DurationMS > 0 {
		return time.Duration(r.DurationMS) * time.Millisecond
	}
	switch r.Mode {
	case ModeScalar:
		return actuation.Forever
	case ModePattern, ModeLinear:
		return waveform.Duration()
	default:
		return 0
	}
}

// StopRequest is the payload of the stop topic: {"handle": 3} or {"all": true}.
type StopRequest struct {
	Handle uint64 `json:"handle,omitempty"`
	All    bool   `json:"all,omitempty"`
}

// Record describes one dispatch. It is stored in the history, published as
// status and returned by the API.
type Record struct {
	Handle    uint64   `json:"handle"`
	RequestID string   `json:"request_id,omitempty"`
	Mode      Mode     `json:"mode"`
	Actuators []string `json:"actuators"`
	// RequestedMS is the resolved play duration; 0 means until stopped.
	RequestedMS int64      `json:"requested_ms"`
	State       State      `json:"state"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// DurationMS is how long the dispatch actually ran.
	DurationMS *int64 `json:"duration_ms,omitempty"`
}

// Rejection is published when a request cannot be started.
type Rejection struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}
