package domain

import (
	"sync"
	"time"
)

// Clock is the wall-clock time source for timestamps and expiry checks
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real system time
type SystemClock struct{}

// Now returns the current system time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock returns a settable time, for tests
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a FixedClock pinned at t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the pinned time
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
