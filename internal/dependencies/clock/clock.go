package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time

	// Sleep pauses the calling goroutine for the given duration. The tick
	// loop uses this for its idle interval so tests can run it without
	// real delays.
	Sleep(d time.Duration)
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Sleep pauses for the given duration
func (c *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
