// Package clock centralizes time handling so every timestamp the control
// plane produces or compares is UTC.
package clock

import "time"

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Seconds converts a config-supplied second count into a time.Duration.
func Seconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}

// Expired reports whether t is before Now(). A zero t never expires.
func Expired(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return Now().After(t)
}
