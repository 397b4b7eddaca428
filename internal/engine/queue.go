package engine

import (
	"sync"

	"github.com/roach88/tapdance/internal/ir"
)

// inputQueue is a thread-safe unbounded FIFO of input events feeding the
// Run loop.
//
// The signal channel lets Run wait for input and for context cancellation
// in the same select.
type inputQueue struct {
	mu     sync.Mutex
	events []ir.InputEvent
	closed bool
	signal chan struct{} // buffered, size 1
}

func newInputQueue() *inputQueue {
	return &inputQueue{
		events: make([]ir.InputEvent, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends an event. Returns false if the queue is closed.
func (q *inputQueue) Enqueue(ev ir.InputEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, ev)

	// Buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *inputQueue) TryDequeue() (ir.InputEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return ir.InputEvent{}, false
	}

	ev := q.events[0]
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return ev, true
}

// Wait returns a channel that fires when events may be available, and is
// closed by Close.
func (q *inputQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *inputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes the Run loop.
func (q *inputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
