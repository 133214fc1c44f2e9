package infra

import (
	"time"
)

const (
	// Feed downtime means stale quotes, so reconnects start aggressive
	// and cap low.
	backoffBase = 500 * time.Millisecond
	backoffMax  = 30 * time.Second
)

// CalculateBackoff returns the reconnect delay for a given retry count:
// base * 2^retry, capped. Negative retry counts get the base delay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return backoffBase
	}

	// 2^26 * 500ms already exceeds the cap; avoid shift overflow.
	if retryCount > 26 {
		return backoffMax
	}

	backoff := backoffBase * time.Duration(1<<retryCount)
	if backoff > backoffMax {
		return backoffMax
	}
	return backoff
}
