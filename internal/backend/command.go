package backend

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
)

// Command names understood by the bridges.
const (
	CommandScalar = "scalar"
	CommandLinear = "linear"
	CommandStop   = "stop"
)

// commandSource tags every command published by this daemon.
const commandSource = "actuation"

// Command is the JSON payload published to a device bridge.
type Command struct {
	ID         string   `json:"id"`
	Device     string   `json:"device"`
	Address    string   `json:"address,omitempty"`
	Kind       string   `json:"kind,omitempty"`
	Index      int      `json:"index"`
	Command    string   `json:"command"`
	Value      *float64 `json:"value,omitempty"`
	Position   *float64 `json:"position,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	Source     string   `json:"source"`
}

func newCommand(device actuation.DeviceInfo, command string) Command {
	return Command{
		ID:      uuid.NewString(),
		Device:  device.Name,
		Address: device.Address,
		Command: command,
		Source:  commandSource,
	}
}

func scalarCommand(a *actuation.Actuator, value float64) Command {
	c := newCommand(a.Device, CommandScalar)
	c.Kind = string(a.Kind)
	c.Index = a.Index
	c.Value = &value
	return c
}

func linearCommand(a *actuation.Actuator, duration time.Duration, position float64) Command {
	c := newCommand(a.Device, CommandLinear)
	c.Kind = string(a.Kind)
	c.Index = a.Index
	c.Position = &position
	c.DurationMS = duration.Milliseconds()
	return c
}

// topicSegment makes a device name safe as a single MQTT topic level.
func topicSegment(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t':
			return '-'
		case '/', '+', '#':
			return -1
		}
		return r
	}, name)
}
