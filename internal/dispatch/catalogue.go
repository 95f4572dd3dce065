package dispatch

import (
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/config"
)

// Catalogue is the fixed set of actuators the daemon controls, built once
// from configuration. It is read-only and safe for concurrent use.
type Catalogue struct {
	devices   []actuation.DeviceInfo
	actuators []*actuation.Actuator
	byID      map[string]*actuation.Actuator
	byDevice  map[string][]*actuation.Actuator
}

// NewCatalogue enumerates the actuators of the given devices.
func NewCatalogue(devices ...actuation.DeviceInfo) *Catalogue {
	c := &Catalogue{
		devices:  slices.Clone(devices),
		byID:     make(map[string]*actuation.Actuator),
		byDevice: make(map[string][]*actuation.Actuator),
	}
	c.actuators = actuation.Enumerate(devices...)
	for _, a := range c.actuators {
		c.byID[a.Identifier()] = a
		c.byDevice[a.Device.Name] = append(c.byDevice[a.Device.Name], a)
	}
	return c
}

// CatalogueFromConfig converts configured devices and builds a catalogue.
func CatalogueFromConfig(devices []config.DeviceConfig) (*Catalogue, error) {
	infos := make([]actuation.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		info := actuation.DeviceInfo{
			Name:     d.Name,
			Protocol: d.Protocol,
			Address:  d.Address,
			Linear:   d.Linear,
			Rotate:   d.Rotate,
		}
		for _, s := range d.Scalar {
			kind, err := actuation.ParseKind(s)
			if err != nil {
				return nil, fmt.Errorf("device %q: %w", d.Name, err)
			}
			info.Scalar = append(info.Scalar, kind)
		}
		if err := info.Validate(); err != nil {
			return nil, fmt.Errorf("device %q: %w", d.Name, err)
		}
		infos = append(infos, info)
	}
	return NewCatalogue(infos...), nil
}

// Devices returns the configured devices.
func (c *Catalogue) Devices() []actuation.DeviceInfo {
	return slices.Clone(c.devices)
}

// Actuators returns every actuator in enumeration order.
func (c *Catalogue) Actuators() []*actuation.Actuator {
	return slices.Clone(c.actuators)
}

// Resolve maps names to actuators for mode. A name is either an actuator
// identifier or a device name; a device name selects the device's actuators
// suited to mode. Duplicates are removed, first occurrence wins.
func (c *Catalogue) Resolve(mode Mode, names ...string) ([]*actuation.Actuator, error) {
	var out []*actuation.Actuator
	seen := make(map[*actuation.Actuator]bool)
	add := func(a *actuation.Actuator) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}

	for _, name := range names {
		if a, ok := c.byID[name]; ok {
			if a.IsLinear() != mode.linear() {
				return nil, fmt.Errorf("%w: %s cannot play %s", ErrKindMismatch, name, mode)
			}
			add(a)
			continue
		}

		group, ok := c.byDevice[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownActuator, name)
		}
		matched := false
		for _, a := range group {
			if a.IsLinear() == mode.linear() {
				add(a)
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: device %s has no actuator for %s", ErrKindMismatch, name, mode)
		}
	}
	return out, nil
}

func identifiers(actuators []*actuation.Actuator) []string {
	ids := make([]string, len(actuators))
	for i, a := range actuators {
		ids[i] = a.Identifier()
	}
	return ids
}
