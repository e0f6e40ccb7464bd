package racesim

import "time"

// Clock produces the time elapsed between successive samples, in seconds.
type Clock interface {
	Sample() float64
}

// WallClock samples real time. It never returns a negative delta, and it does
// not clamp long gaps (such as a backgrounded tab); clamping is up to the caller.
type WallClock struct {
	now func() time.Time

	start, last time.Time
	started     bool
}

func NewWallClock() *WallClock {
	return &WallClock{now: time.Now}
}

func (c *WallClock) Sample() float64 {
	now := c.now()

	if !c.started {
		c.start, c.last, c.started = now, now, true
		return 0
	}

	delta := now.Sub(c.last)

	if delta <= 0 {
		return 0
	}

	c.last = now

	return delta.Seconds()
}

// Elapsed is the time between the first and the latest sample.
func (c *WallClock) Elapsed() time.Duration {
	return c.last.Sub(c.start)
}

// ManualClock is advanced by hand, for tests and offline replays.
type ManualClock struct {
	pending time.Duration
	elapsed time.Duration
}

func (c *ManualClock) Advance(d time.Duration) {
	if d > 0 {
		c.pending += d
	}
}

func (c *ManualClock) Sample() float64 {
	delta := c.pending
	c.elapsed += delta
	c.pending = 0

	return delta.Seconds()
}

func (c *ManualClock) Elapsed() time.Duration {
	return c.elapsed
}
