package engine

import "sync/atomic"

// Clock is the logical clock that orders trace entries.
//
// Each observation the engine emits takes the next seq from the clock, so a
// replayed session produces the same seq numbers as the original run.
// Clock is safe for concurrent use, though only the engine goroutine calls
// Next in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
