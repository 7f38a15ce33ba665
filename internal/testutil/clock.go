package testutil

import "sync"

// VersionCounter hands out document versions for tests.
//
// Unlike the demo document's counter it can be reset, so the same scenario
// can run twice with identical versions.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type VersionCounter struct {
	mu      sync.Mutex
	version uint64
}

// NewVersionCounter creates a counter starting at 0. The first call to
// Next() returns 1.
func NewVersionCounter() *VersionCounter {
	return &VersionCounter{}
}

// Next increments and returns the next version.
func (c *VersionCounter) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	return c.version
}

// Current returns the current version without incrementing.
func (c *VersionCounter) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Reset resets the counter to 0.
func (c *VersionCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = 0
}
