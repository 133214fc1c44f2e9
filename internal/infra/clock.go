package infra

import "time"

// Clock abstracts the time source so TTL, watchdog, and rate-limiter logic
// are deterministically testable without wall-clock sleeps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
