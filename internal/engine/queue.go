package engine

import (
	"sync"

	"github.com/roach88/matter/internal/reducer"
)

// actionQueue is a thread-safe FIFO of actions waiting for the Runner.
//
// It is unbounded so that producers (websocket readers, signal handlers)
// never block on the simulation. A buffered signal channel lets the Run
// loop wait for work and for context cancellation in one select.
type actionQueue struct {
	mu      sync.Mutex
	actions []reducer.Action
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newActionQueue() *actionQueue {
	return &actionQueue{
		actions: make([]reducer.Action, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends a. It reports false once the queue is closed.
func (q *actionQueue) Enqueue(a reducer.Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.actions = append(q.actions, a)

	// buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the oldest action without blocking.
func (q *actionQueue) TryDequeue() (reducer.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}
	a := q.actions[0]
	q.actions[0] = nil
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Wait returns a channel that receives when actions may be available. It
// is closed when the queue closes.
func (q *actionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued actions.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Closed reports whether Close has been called.
func (q *actionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further actions and wakes any waiter.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
