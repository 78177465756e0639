package ui

import (
	"time"
)

// DefaultFrameRate is the NTSC frame rate.
const DefaultFrameRate = 60

// FrameClock emulates the vertical-blank flag from the wall clock. Every
// new frame period reads high once, then low, so each period produces one
// low to high transition as long as it is sampled at least twice.
type FrameClock struct {
	Rate int
	Now  func() time.Time

	start time.Time
	last  int64
	high  bool
}

// NewFrameClock creates a FrameClock at rate frames per second.
func NewFrameClock(rate int) *FrameClock {
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return &FrameClock{Rate: rate, Now: time.Now}
}

// Period returns the duration of one frame.
func (c *FrameClock) Period() time.Duration {
	return time.Second / time.Duration(c.Rate)
}

// VBlank implements framework.VBlank.
func (c *FrameClock) VBlank() bool {
	now := c.Now()
	if c.start.IsZero() {
		c.start = now
	}
	frame := int64(now.Sub(c.start) / c.Period())
	if frame != c.last && !c.high {
		c.last, c.high = frame, true
		return true
	}
	c.high = false
	return false
}
