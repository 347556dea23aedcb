package transport

import "time"

// Backoff returns base * 2^failures, capped. failures counts the attempts
// already failed, so the first retry waits the base interval.
func Backoff(base, cap time.Duration, failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
