// Package clock lets code that stamps messages with the current time run on a fake clock in tests.
package clock

import (
	"sync"
	"time"
)

type C interface {
	Now() time.Time
}

// Real is the wall clock, in UTC.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Mock returns MockNow until Advance moves it.
type Mock struct {
	mu      sync.Mutex
	MockNow time.Time
}

func (c *Mock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.MockNow
}

func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	c.MockNow = c.MockNow.Add(d)
	c.mu.Unlock()
}
