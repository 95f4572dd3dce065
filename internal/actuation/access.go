package actuation

import (
	"context"
	"fmt"
)

// contender is one command currently driving an actuator. speed is the last
// value it reported.
type contender struct {
	handle    Handle
	speed     Speed
	exclusive bool
	seq       uint64
}

// deviceEntry is the runtime record of one actuator while it has contenders.
type deviceEntry struct {
	contenders []contender
	seq        uint64
}

// effective returns the speed of the most recently started exclusive
// command. Without one, the most recently reported pattern value wins.
// Handles are unique and increasing, so the maximum is unambiguous.
func (e *deviceEntry) effective() Speed {
	var best, latest *contender
	for i := range e.contenders {
		c := &e.contenders[i]
		if c.exclusive {
			if best == nil || c.handle > best.handle {
				best = c
			}
			continue
		}
		if latest == nil || c.seq > latest.seq {
			latest = c
		}
	}
	switch {
	case best != nil:
		return best.speed
	case latest != nil:
		return latest.speed
	default:
		return MinSpeed()
	}
}

func (e *deviceEntry) find(h Handle) *contender {
	for i := range e.contenders {
		if e.contenders[i].handle == h {
			return &e.contenders[i]
		}
	}
	return nil
}

func (e *deviceEntry) report(c *contender, speed Speed) {
	e.seq++
	c.speed = speed
	c.seq = e.seq
}

func (e *deviceEntry) remove(h Handle) bool {
	for i := range e.contenders {
		if e.contenders[i].handle == h {
			e.contenders = append(e.contenders[:i], e.contenders[i+1:]...)
			return true
		}
	}
	return false
}

// deviceAccess resolves contention between commands that target the same
// actuator. It is owned by the Worker goroutine and must not be touched from
// anywhere else; it has no locks.
type deviceAccess struct {
	entries  map[string]*deviceEntry
	backend  Backend
	recorder Recorder
	logger   Logger
}

func newDeviceAccess(backend Backend, recorder Recorder, logger Logger) *deviceAccess {
	return &deviceAccess{
		entries:  make(map[string]*deviceEntry),
		backend:  backend,
		recorder: recorder,
		logger:   logger,
	}
}

// start registers a contender and writes the resulting effective speed.
func (d *deviceAccess) start(ctx context.Context, a *Actuator, speed Speed, exclusive bool, h Handle) {
	id := a.Identifier()
	e, ok := d.entries[id]
	if !ok {
		e = &deviceEntry{}
		d.entries[id] = e
	}
	c := e.find(h)
	if c == nil {
		e.contenders = append(e.contenders, contender{handle: h, exclusive: exclusive})
		c = &e.contenders[len(e.contenders)-1]
	}
	e.report(c, speed)

	d.write(ctx, a, e.effective())
}

// update changes a contender's speed and writes the resulting effective speed.
// Updates from a handle the actuator does not know (e.g. after clear) are dropped.
func (d *deviceAccess) update(ctx context.Context, a *Actuator, speed Speed, h Handle) {
	var c *contender
	e, ok := d.entries[a.Identifier()]
	if ok {
		c = e.find(h)
	}
	if c == nil {
		d.logger.Debug("update from unregistered contender dropped", "actuator", a.Identifier(), "handle", h)
		return
	}
	e.report(c, speed)

	d.write(ctx, a, e.effective())
}

// stop removes a contender. When it was the last one the actuator is set to
// the minimum speed and the hardware result is returned; otherwise the
// effective speed of the remaining contenders is written on a best-effort
// basis. Stopping a handle the actuator never registered is a no-op.
func (d *deviceAccess) stop(ctx context.Context, a *Actuator, h Handle) error {
	id := a.Identifier()
	e, ok := d.entries[id]
	if !ok || !e.remove(h) {
		return nil
	}

	if len(e.contenders) == 0 {
		delete(d.entries, id)
		return d.set(ctx, a, MinSpeed())
	}

	d.write(ctx, a, e.effective())
	return nil
}

// clear drops all bookkeeping. It does not touch the hardware.
func (d *deviceAccess) clear() {
	d.entries = make(map[string]*deviceEntry)
}

// taskCount reports the number of active contenders for an actuator.
func (d *deviceAccess) taskCount(id string) int {
	if e, ok := d.entries[id]; ok {
		return len(e.contenders)
	}
	return 0
}

func (d *deviceAccess) set(ctx context.Context, a *Actuator, speed Speed) error {
	value := speed.Float()
	if err := d.backend.SetScalar(ctx, a, value); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrHardwareCommandFailed, a.Identifier(), err)
	}
	d.recorder.RecordActuatorValue(a.Identifier(), string(a.Kind), value)
	return nil
}

// write is set with the error logged and swallowed.
func (d *deviceAccess) write(ctx context.Context, a *Actuator, speed Speed) {
	if err := d.set(ctx, a, speed); err != nil {
		d.logger.Warn("actuator write failed", "actuator", a.Identifier(), "speed", speed.Percent(), "error", err)
	}
}
