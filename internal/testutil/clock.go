package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests that advances by a fixed
// step on every reading, so run timestamps are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	next  time.Time
	step  time.Duration
	reads int
}

// NewDeterministicClock creates a clock starting at Epoch that advances one
// second per reading.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{next: Epoch, step: time.Second}
}

// Now returns the current instant and advances the clock.
// Its signature matches time.Now, so it can be passed where one is expected.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	c.reads++
	return t
}

// Reads is how many times Now has been called.
func (c *DeterministicClock) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
	c.reads = 0
}
