package queue

import "time"

// RetryPolicy is the explicit retry budget the queue owns. It is decoupled
// from the worker's settlement logic: a worker records the failure on the
// prediction and returns the error, and this policy alone decides whether
// the job runs again.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the configured broker behavior: three delivery
// attempts with exponential backoff starting at five seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second}
}

// Exhausted reports whether a job that has made the given number of
// attempts is out of budget.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// NextDelay returns the backoff before the attempt following the given
// 1-based attempt number: base, 2*base, 4*base, ...
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
