package actuation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Player plays one command on a fixed set of actuators. A Player is created
// by Scheduler.CreatePlayer and may be played exactly once; the Play methods
// block until the command ends, either because its duration elapsed or
// because its handle was stopped.
type Player struct {
	handle     Handle
	actuators  []*Actuator
	ctx        context.Context
	cancel     context.CancelFunc
	mailbox    *mailbox
	workerDone <-chan struct{}
	results    chan error
	resolution time.Duration
	logger     Logger

	played atomic.Bool
}

// Handle returns the handle that identifies this player's command.
func (p *Player) Handle() Handle {
	return p.handle
}

// Actuators returns the actuators the player controls.
func (p *Player) Actuators() []*Actuator {
	out := make([]*Actuator, len(p.actuators))
	copy(out, p.actuators)
	return out
}

// Cancel stops the command. It is equivalent to Scheduler.StopTask.
func (p *Player) Cancel() {
	p.cancel()
}

// PlayScalar holds every actuator at speed for duration. The command is
// exclusive: while it runs it overrides patterns and older scalar commands
// on the same actuators.
func (p *Player) PlayScalar(duration time.Duration, speed Speed) error {
	if err := p.consume(); err != nil {
		return err
	}
	defer p.cancel()

	p.logger.Debug("playing scalar", "handle", p.handle, "speed", speed.Percent(), "duration", duration)
	for _, a := range p.actuators {
		p.send(workerTask{kind: taskStart, actuator: a, handle: p.handle, speed: speed, exclusive: true})
	}

	t := watchdog(duration, p.cancel)
	defer t.Stop()

	wait(p.ctx, duration)
	return p.end()
}

// PlayScalarPattern drives every actuator along waveform, scaled by speed,
// for duration. The waveform repeats when it is shorter than duration.
// Points closer than the resolution to the previously emitted point are
// skipped. Pattern commands never override exclusive commands.
func (p *Player) PlayScalarPattern(duration time.Duration, waveform Waveform, speed Speed) error {
	if err := p.consume(); err != nil {
		return err
	}
	defer p.cancel()

	if waveform.isFlat() || waveform.Duration() <= 0 {
		p.logger.Debug("empty pattern ignored", "handle", p.handle)
		return nil
	}

	p.logger.Debug("playing pattern", "handle", p.handle, "points", len(waveform), "speed", speed.Percent(), "duration", duration)
	first := SpeedFromWaveform(waveform[0].Position).Multiply(speed)
	for _, a := range p.actuators {
		p.send(workerTask{kind: taskStart, actuator: a, handle: p.handle, speed: first})
	}

	t := watchdog(duration, p.cancel)
	defer t.Stop()

	loopStart := time.Now()
	cur := 0
	for {
		next, offset, shift := nextRetained(waveform, cur, p.resolution)
		if !waitUntil(p.ctx, loopStart.Add(offset)) {
			break
		}
		loopStart = loopStart.Add(shift)
		cur = next

		value := SpeedFromWaveform(waveform[cur].Position).Multiply(speed)
		for _, a := range p.actuators {
			p.send(workerTask{kind: taskUpdate, actuator: a, handle: p.handle, speed: value})
		}
	}

	return p.end()
}

// PlayLinear moves every actuator through waveform, one segment at a time,
// repeating until duration has elapsed. Each move is sent to all actuators
// and acknowledged before the player sleeps until the segment end. Moves are
// not arbitrated; the actuator stays at its last position afterwards.
func (p *Player) PlayLinear(duration time.Duration, waveform Waveform) error {
	if err := p.consume(); err != nil {
		return err
	}
	defer p.cancel()

	if len(waveform) < 2 || waveform.Duration() <= 0 {
		p.logger.Debug("empty linear waveform ignored", "handle", p.handle)
		return nil
	}

	p.logger.Debug("playing linear", "handle", p.handle, "points", len(waveform), "duration", duration)
	t := watchdog(duration, p.cancel)
	defer t.Stop()

	started := time.Now()
	for p.ctx.Err() == nil && time.Since(started) < duration {
		loopStart := time.Now()
		for i := 1; i < len(waveform); i++ {
			prev, next := waveform[i-1], waveform[i]
			if err := p.move(next.Position, next.At()-prev.At()); err != nil {
				return err
			}
			if !waitUntil(p.ctx, loopStart.Add(next.At())) {
				return nil
			}
		}
	}
	return nil
}

// PlayPosition issues a single move to position over duration and returns
// without waiting for the hardware.
func (p *Player) PlayPosition(duration time.Duration, position Speed) error {
	if err := p.consume(); err != nil {
		return err
	}
	defer p.cancel()

	var errs []error
	for _, a := range p.actuators {
		err := p.send(workerTask{
			kind:     taskMove,
			actuator: a,
			handle:   p.handle,
			position: position.Float(),
			duration: duration,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Player) consume() error {
	if !p.played.CompareAndSwap(false, true) {
		return ErrPlayerConsumed
	}
	return nil
}

// send queues a task for the Worker. A closed mailbox is logged and returned.
func (p *Player) send(t workerTask) error {
	if err := p.mailbox.push(t); err != nil {
		p.logger.Warn("worker task dropped", "handle", p.handle, "kind", t.kind, "error", err)
		return err
	}
	return nil
}

// move sends one position move to every actuator and waits for all of them.
func (p *Player) move(position int, d time.Duration) error {
	value := SpeedFromWaveform(position).Float()

	var errs []error
	sent := 0
	for _, a := range p.actuators {
		err := p.send(workerTask{
			kind:        taskMove,
			actuator:    a,
			handle:      p.handle,
			position:    value,
			duration:    d,
			awaitResult: true,
			result:      p.results,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	errs = append(errs, p.await(sent))
	return errors.Join(errs...)
}

// end removes this player's contention on every actuator and collects the
// result of each final write.
func (p *Player) end() error {
	var errs []error
	sent := 0
	for _, a := range p.actuators {
		err := p.send(workerTask{
			kind:     taskEnd,
			actuator: a,
			handle:   p.handle,
			result:   p.results,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}
	errs = append(errs, p.await(sent))

	err := errors.Join(errs...)
	if err != nil {
		p.logger.Warn("command ended with errors", "handle", p.handle, "error", err)
	} else {
		p.logger.Debug("command ended", "handle", p.handle)
	}
	return err
}

// await collects n results. If the Worker exits first, whatever it already
// delivered is kept and ErrChannelClosed is reported for the rest.
func (p *Player) await(n int) error {
	var errs []error
	for i := 0; i < n; i++ {
		select {
		case err := <-p.results:
			if err != nil {
				errs = append(errs, err)
			}
		case <-p.workerDone:
			select {
			case err := <-p.results:
				if err != nil {
					errs = append(errs, err)
				}
			default:
				return errors.Join(append(errs, ErrChannelClosed)...)
			}
		}
	}
	return errors.Join(errs...)
}
