// Package lifecycle owns the set of resting orders for one instrument and
// keeps it fresh: time-to-live expiry, price-drift repricing, recentering,
// a no-fill watchdog, and a cancellation budget.
package lifecycle

import (
	"sync"
	"time"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
)

// CancelLimiter is a token bucket refilled once per 60-second wall-clock
// window. Cancellations beyond the budget are dropped by the caller, never
// queued, so the reprice loop cannot stall behind a backlog.
//
// It is the one piece of per-instrument state shared outside the
// single-owner event path, hence the mutex.
type CancelLimiter struct {
	mu          sync.Mutex
	ratePerMin  int
	remaining   int
	windowStart time.Time
	clock       infra.Clock
}

// NewCancelLimiter creates a limiter allowing ratePerMin cancels per window.
func NewCancelLimiter(ratePerMin int, clock infra.Clock) *CancelLimiter {
	return &CancelLimiter{
		ratePerMin:  ratePerMin,
		remaining:   ratePerMin,
		windowStart: clock.Now(),
		clock:       clock,
	}
}

// TryAcquire consumes one cancel token. Returns false when the window
// budget is exhausted.
func (l *CancelLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.remaining <= 0 {
		return false
	}
	l.remaining--
	return true
}

// Remaining returns the tokens left in the current window.
func (l *CancelLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.remaining
}

// refill resets the budget when a full window has elapsed. Must be called
// with the mutex held.
func (l *CancelLimiter) refill() {
	now := l.clock.Now()
	if now.Sub(l.windowStart) >= time.Minute {
		l.remaining = l.ratePerMin
		l.windowStart = now
	}
}
