package clock

import (
	"sync"
	"time"
)

// FakeClock reports a manually controlled instant so billing cutoffs
// and invoice dates land on known values in tests. The scheduler reads
// it from its run goroutine, hence the mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock pins the clock to start, normalized to UTC.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
