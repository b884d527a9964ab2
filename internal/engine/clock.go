package engine

import "sync/atomic"

// Clock is a monotonic logical clock counting applied transitions.
//
// Every dispatched action and every load advances it by one; journal
// entries are stamped with its value. Wall-clock time is never used for
// ordering.
//
// Clock is safe for concurrent use, although only the goroutine driving a
// Game advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start, e.g. to continue the
// numbering of a journal session.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
