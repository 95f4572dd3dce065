package actuation

import (
	"context"
	"math"
	"time"
)

// Forever is a duration that never elapses in practice. Commands played for
// Forever run until their handle is stopped.
const Forever time.Duration = math.MaxInt64

// wait sleeps for d. It returns false if ctx was cancelled first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// waitUntil sleeps until deadline. It returns false if ctx was cancelled first.
func waitUntil(ctx context.Context, deadline time.Time) bool {
	return wait(ctx, time.Until(deadline))
}

// watchdog cancels after d. A Forever watchdog never fires.
func watchdog(d time.Duration, cancel context.CancelFunc) *time.Timer {
	return time.AfterFunc(d, cancel)
}

// nextRetained finds the next waveform point at least resolution after the
// point at index cur, walking forward and wrapping around as many times as
// needed. It returns the index of that point, its offset from the current
// cycle start, and how far the cycle start moved (a multiple of the waveform
// duration). points must not be flat.
func nextRetained(points Waveform, cur int, resolution time.Duration) (next int, offset, shift time.Duration) {
	cycle := points.Duration()
	curAt := points[cur].At()

	limit := len(points) * (int(resolution/cycle) + 2)
	i := cur
	for n := 0; n < limit; n++ {
		i++
		if i == len(points) {
			i = 0
			shift += cycle
		}
		at := shift + points[i].At()
		if at-curAt >= resolution {
			return i, at, shift
		}
	}
	// Unreachable for a non-flat, ordered waveform.
	return cur, curAt + cycle, cycle
}
