package server

import (
	"sync"
	"time"
)

// timestampLayout matches the web client's ISO-8601 millisecond format.
// Fixed-width UTC strings sort lexicographically in chronological order,
// which is what makes the timestamp usable as the message sort key.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Clock issues strictly increasing timestamps within one process. Two
// appends inside the same millisecond would otherwise collide on the
// (channel, timestamp) key; the clock bumps the second one forward by 1ms.
// Collisions across processes remain last-writer-wins.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) Timestamp() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t

	return t.Format(timestampLayout)
}
