package sim

import (
	"sync"
	"time"
)

// Clock is a virtual monotonic clock that moves forward a fixed step on
// every read, so spin-waits against it always terminate.
type Clock struct {
	mu   sync.Mutex
	now  time.Duration
	step time.Duration
}

// NewClock returns a clock advancing step per Now call
func NewClock(step time.Duration) *Clock {
	return &Clock{step: step}
}

// Now returns the current time and advances the clock
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Elapsed returns the current time without advancing
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
