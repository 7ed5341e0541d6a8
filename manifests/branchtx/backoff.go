package branchtx

import (
	"time"

	"github.com/cenk/backoff"
)

// LinearBackOff waits Interval, 2*Interval, 3*Interval...
// between attempts.
type LinearBackOff struct {
	Interval time.Duration

	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NextBackOff implements backoff.BackOff.
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++

	return time.Duration(b.attempt) * b.Interval
}

// Reset implements backoff.BackOff.
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}

// RetryPolicy bounds branch creation attempts.
type RetryPolicy struct {
	// Attempts is the total number of attempts, first
	// included.
	Attempts int
	// Interval is the unit of the linear backoff.
	Interval time.Duration
}

// DefaultRetryPolicy makes three attempts, waiting 1s then
// 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Interval: time.Second}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	// WithMaxRetries treats zero as unlimited.
	if p.Attempts <= 1 {
		return &backoff.StopBackOff{}
	}

	return backoff.WithMaxRetries(
		&LinearBackOff{Interval: p.Interval},
		uint64(p.Attempts-1),
	)
}
