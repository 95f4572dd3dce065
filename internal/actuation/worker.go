package actuation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Worker is the single writer for scalar actuators. It drains the shared
// mailbox one task at a time, in arrival order, and is the only goroutine
// that reads or mutates the contention table.
//
// Position moves are not arbitrated; each runs on its own goroutine so a slow
// interpolation never holds up scalar traffic.
type Worker struct {
	mailbox  *mailbox
	access   *deviceAccess
	backend  Backend
	recorder Recorder
	logger   Logger

	running atomic.Bool
	moves   sync.WaitGroup
	done    chan struct{}
}

func newWorker(mb *mailbox, backend Backend, logger Logger) *Worker {
	return &Worker{
		mailbox:  mb,
		access:   newDeviceAccess(backend, noopRecorder{}, logger),
		backend:  backend,
		recorder: noopRecorder{},
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// SetRecorder sets the recorder notified of every value sent to hardware.
// It must be called before Run.
func (w *Worker) SetRecorder(r Recorder) {
	if r == nil {
		r = noopRecorder{}
	}
	w.recorder = r
	w.access.recorder = r
}

// Done is closed once Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run processes tasks until ctx is cancelled. It may only be called once.
// On return the mailbox rejects new tasks and any player waiting for a
// result receives ErrChannelClosed.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errWorkerStarted
	}
	defer close(w.done)

	w.logger.Info("actuation worker started")
	for {
		task, ok := w.mailbox.pop(ctx)
		if !ok {
			break
		}
		w.handle(ctx, task)
	}

	if dropped := w.mailbox.close(); dropped > 0 {
		w.logger.Warn("actuation worker discarded queued tasks", "count", dropped)
	}
	w.moves.Wait()
	w.logger.Info("actuation worker stopped")
	return ctx.Err()
}

func (w *Worker) handle(ctx context.Context, t workerTask) {
	switch t.kind {
	case taskStart:
		w.access.start(ctx, t.actuator, t.speed, t.exclusive, t.handle)
	case taskUpdate:
		w.access.update(ctx, t.actuator, t.speed, t.handle)
	case taskEnd:
		w.reply(t.result, w.access.stop(ctx, t.actuator, t.handle))
	case taskMove:
		w.move(ctx, t)
	case taskStopAll:
		w.access.clear()
		w.logger.Info("actuator bookkeeping cleared")
	default:
		w.logger.Error("unknown worker task", "kind", t.kind)
	}
}

// move dispatches a position command on its own goroutine.
func (w *Worker) move(ctx context.Context, t workerTask) {
	w.moves.Add(1)
	go func() {
		defer w.moves.Done()

		err := w.backend.SetLinear(ctx, t.actuator, t.duration, t.position)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrHardwareCommandFailed, t.actuator.Identifier(), err)
		} else {
			w.recorder.RecordActuatorValue(t.actuator.Identifier(), string(t.actuator.Kind), t.position)
		}

		if t.awaitResult {
			w.reply(t.result, err)
			return
		}
		if err != nil {
			w.logger.Warn("actuator move failed", "actuator", t.actuator.Identifier(), "error", err)
		}
	}()
}

// reply delivers a result without ever blocking the worker. Result channels
// are sized by the player for every reply it expects.
func (w *Worker) reply(ch chan<- error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
		w.logger.Warn("task result dropped, receiver not ready", "error", err)
	}
}
