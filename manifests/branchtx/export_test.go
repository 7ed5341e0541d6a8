package branchtx

import "github.com/cenk/backoff"

// BackOffForTest exposes RetryPolicy.backOff.
func BackOffForTest(p RetryPolicy) backoff.BackOff {
	return p.backOff()
}
