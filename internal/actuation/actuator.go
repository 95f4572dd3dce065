package actuation

import (
	"fmt"
	"strings"
)

// ActuatorKind identifies what an actuator physically does.
type ActuatorKind string

const (
	KindVibrate   ActuatorKind = "vibrate"
	KindRotate    ActuatorKind = "rotate"
	KindOscillate ActuatorKind = "oscillate"
	KindConstrict ActuatorKind = "constrict"
	KindInflate   ActuatorKind = "inflate"
	KindPosition  ActuatorKind = "position"
)

// AllKinds returns all valid actuator kinds.
func AllKinds() []ActuatorKind {
	return []ActuatorKind{
		KindVibrate,
		KindRotate,
		KindOscillate,
		KindConstrict,
		KindInflate,
		KindPosition,
	}
}

// ParseKind converts a case-insensitive kind name.
func ParseKind(s string) (ActuatorKind, error) {
	k := ActuatorKind(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range AllKinds() {
		if k == valid {
			return k, nil
		}
	}
	return "", fmt.Errorf("actuation: unknown actuator kind %q", s)
}

// DeviceInfo describes the command groups a device reports.
//
// Scalar lists one kind per scalar channel; Linear and Rotate are the number
// of position and rotation axes. Discovery and connection happen elsewhere;
// this is only the shape the engine needs.
type DeviceInfo struct {
	Name     string         `yaml:"name" json:"name"`
	Protocol string         `yaml:"protocol" json:"protocol"`
	Address  string         `yaml:"address" json:"address"`
	Scalar   []ActuatorKind `yaml:"scalar" json:"scalar,omitempty"`
	Linear   int            `yaml:"linear" json:"linear,omitempty"`
	Rotate   int            `yaml:"rotate" json:"rotate,omitempty"`
}

// Validate reports an error if two of the device's axes would get the same
// identifier. Such axes could not be told apart by contention tracking or by
// the device bridge.
func (d DeviceInfo) Validate() error {
	seen := make(map[string]bool)
	for _, a := range Enumerate(d) {
		if seen[a.id] {
			return fmt.Errorf("%w: %s", ErrDuplicateActuator, a.id)
		}
		seen[a.id] = true
	}
	return nil
}

// Actuator is one independently controllable axis of a device.
//
// Actuators are created by Enumerate and never modified afterwards, so they
// can be shared freely between players.
type Actuator struct {
	Device DeviceInfo
	Kind   ActuatorKind
	// Index is the sub-index within the device's command group.
	Index int

	id string
}

// NewActuator creates an actuator for the given device axis.
func NewActuator(device DeviceInfo, kind ActuatorKind, index int) *Actuator {
	a := &Actuator{Device: device, Kind: kind, Index: index}
	a.id = buildIdentifier(device.Name, kind, index)
	return a
}

// Identifier returns the stable key for this axis, e.g. "Edge (vibrate)" or
// "Edge (vibrate #1)". It is the only key used for contention tracking.
func (a *Actuator) Identifier() string {
	return a.id
}

// IsLinear reports whether the actuator is a position axis.
func (a *Actuator) IsLinear() bool {
	return a.Kind == KindPosition
}

func (a *Actuator) String() string {
	return a.id
}

func buildIdentifier(device string, kind ActuatorKind, index int) string {
	if index == 0 {
		return fmt.Sprintf("%s (%s)", device, kind)
	}
	return fmt.Sprintf("%s (%s #%d)", device, kind, index)
}

// Enumerate returns one Actuator per reported scalar channel, linear axis and
// rotate axis of each device, in that order.
func Enumerate(devices ...DeviceInfo) []*Actuator {
	var actuators []*Actuator
	for _, d := range devices {
		for i, kind := range d.Scalar {
			actuators = append(actuators, NewActuator(d, kind, i))
		}
		for i := 0; i < d.Linear; i++ {
			actuators = append(actuators, NewActuator(d, KindPosition, i))
		}
		for i := 0; i < d.Rotate; i++ {
			actuators = append(actuators, NewActuator(d, KindRotate, i))
		}
	}
	return actuators
}
