package actuation

import (
	"context"
	"sync"
	"time"
)

type taskKind int

const (
	taskStart taskKind = iota
	taskUpdate
	taskEnd
	taskMove
	taskStopAll
)

func (k taskKind) String() string {
	switch k {
	case taskStart:
		return "start"
	case taskUpdate:
		return "update"
	case taskEnd:
		return "end"
	case taskMove:
		return "move"
	case taskStopAll:
		return "stop_all"
	default:
		return "unknown"
	}
}

// workerTask is a message for the Worker. Which fields are meaningful depends
// on kind: speed/exclusive for start, speed for update, position/duration for move.
type workerTask struct {
	kind      taskKind
	actuator  *Actuator
	handle    Handle
	speed     Speed
	exclusive bool

	position    float64
	duration    time.Duration
	awaitResult bool

	// result receives the outcome of end and awaited move tasks.
	result chan<- error
}

// mailbox is an unbounded FIFO shared by all senders with a single receiver.
// push never blocks, so a slow backend cannot stall the players.
type mailbox struct {
	mu     sync.Mutex
	items  []workerTask
	closed bool
	ready  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

// push appends a task. It fails with ErrChannelClosed once the receiver is gone.
func (m *mailbox) push(t workerTask) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrChannelClosed
	}
	m.items = append(m.items, t)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return nil
}

// pop blocks until a task is available or ctx is done.
func (m *mailbox) pop(ctx context.Context) (workerTask, bool) {
	for {
		if ctx.Err() != nil {
			return workerTask{}, false
		}

		m.mu.Lock()
		if len(m.items) > 0 {
			t := m.items[0]
			m.items[0] = workerTask{}
			m.items = m.items[1:]
			m.mu.Unlock()
			return t, true
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-ctx.Done():
			return workerTask{}, false
		}
	}
}

// close rejects further pushes and discards anything still queued.
func (m *mailbox) close() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	dropped := len(m.items)
	m.items = nil
	return dropped
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
