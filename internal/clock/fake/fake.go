// Package fake provides a controllable clock for tests.
package fake

import (
	"sync"
	"time"
)

// Clock is a manually advanced clock.Clock implementation.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// New returns a Clock starting at t.
func New(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the fake clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
