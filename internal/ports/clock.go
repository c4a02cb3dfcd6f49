package ports

import "time"

// Clock abstracts time for components with time-dependent behavior (cache
// TTLs, daily resets, calendar boundaries) so tests can control it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}
