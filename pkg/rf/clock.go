package rf

import "time"

// Clock is a monotonic time source used for settle and spin-wait deadlines
type Clock interface {
	Now() time.Duration
}

// SystemClock reads the wall clock's monotonic reading
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns the time since the clock was created
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}
