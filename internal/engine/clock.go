package engine

import "sync/atomic"

// Clock is a monotonic counter used for command ids and journal sequence
// numbers. The first call to Next returns 1.
//
// Thread-safety: Clock is safe for concurrent use, although the engine only
// advances it from the owner goroutine.
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() uint64 {
	return c.seq.Load()
}
