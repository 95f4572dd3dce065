package actuation

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Handle identifies one command. Handles start at 1 and only increase, so a
// larger handle always means a more recent command.
type Handle uint64

// Settings configures the scheduler.
type Settings struct {
	// Resolution is the minimum spacing between two emitted pattern points.
	Resolution time.Duration
}

type token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Scheduler hands out players and owns their cancellation. It is safe for
// concurrent use.
type Scheduler struct {
	settings Settings
	mailbox  *mailbox
	worker   *Worker
	logger   Logger

	mu     sync.Mutex
	last   Handle
	tokens map[Handle]token
}

// New creates a Scheduler and the Worker that serves it. The caller must run
// the Worker (go worker.Run(ctx)) for commands to reach the backend.
func New(backend Backend, settings Settings, logger Logger) (*Scheduler, *Worker) {
	if logger == nil {
		logger = noopLogger{}
	}
	if settings.Resolution < 0 {
		settings.Resolution = 0
	}

	mb := newMailbox()
	w := newWorker(mb, backend, logger)
	s := &Scheduler{
		settings: settings,
		mailbox:  mb,
		worker:   w,
		logger:   logger,
		tokens:   make(map[Handle]token),
	}
	return s, w
}

// CreatePlayer registers a new command for the given actuators and returns
// its player. A player with no actuators plays as a no-op.
func (s *Scheduler) CreatePlayer(actuators ...*Actuator) *Player {
	s.mu.Lock()
	s.sweepLocked()
	s.last++
	h := s.last
	ctx, cancel := context.WithCancel(context.Background())
	s.tokens[h] = token{ctx: ctx, cancel: cancel}
	s.mu.Unlock()

	return &Player{
		handle:     h,
		actuators:  slices.Clone(actuators),
		ctx:        ctx,
		cancel:     cancel,
		mailbox:    s.mailbox,
		workerDone: s.worker.Done(),
		results:    make(chan error, len(actuators)+1),
		resolution: s.settings.Resolution,
		logger:     s.logger,
	}
}

// StopTask cancels the command with handle h. Unknown handles are logged
// and otherwise ignored.
func (s *Scheduler) StopTask(h Handle) {
	s.mu.Lock()
	t, ok := s.tokens[h]
	delete(s.tokens, h)
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("stop requested for unknown handle", "handle", h, "error", ErrUnknownHandle)
		return
	}
	t.cancel()
	s.logger.Debug("command stopped", "handle", h)
}

// StopAll clears the Worker's bookkeeping and cancels every command. It does
// not zero the hardware; pair it with a backend-level stop for an emergency
// stop.
func (s *Scheduler) StopAll() {
	if err := s.mailbox.push(workerTask{kind: taskStopAll}); err != nil {
		s.logger.Warn("stop all not delivered to worker", "error", err)
	}

	s.mu.Lock()
	tokens := s.tokens
	s.tokens = make(map[Handle]token)
	s.mu.Unlock()

	for _, t := range tokens {
		t.cancel()
	}
	s.logger.Info("all commands stopped", "count", len(tokens))
}

// Active returns the handles of commands that have not finished, in
// ascending order.
func (s *Scheduler) Active() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Handle, 0, len(s.tokens))
	for h, t := range s.tokens {
		if t.ctx.Err() == nil {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// sweepLocked forgets commands that have already finished.
func (s *Scheduler) sweepLocked() {
	for h, t := range s.tokens {
		if t.ctx.Err() != nil {
			delete(s.tokens, h)
		}
	}
}
