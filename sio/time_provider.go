package sio

import "time"

// TimeProvider supplies the monotonic clock used for connect deadlines.
// Injecting a manual provider makes timeout paths deterministic in tests.
type TimeProvider interface {
	// Now returns the current time. Durations between two values must be
	// monotonic.
	Now() time.Time
}

// RealTimeProvider implements TimeProvider using the system clock.
type RealTimeProvider struct{}

// Now returns the current system time, which carries a monotonic reading.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

var defaultTimeProvider TimeProvider = RealTimeProvider{}

// SetDefaultTimeProvider sets the package-level default time provider.
// A nil provider restores the system clock.
func SetDefaultTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	defaultTimeProvider = tp
}

// GetTimeProvider returns tp if non-nil, otherwise the package default.
func GetTimeProvider(tp TimeProvider) TimeProvider {
	if tp != nil {
		return tp
	}
	return defaultTimeProvider
}

// Millis converts d to a poll timeout, rounding up so a positive remainder
// never becomes a zero-length wait.
func Millis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
