package branchtx_test

import (
	"testing"
	"time"

	"github.com/cenk/backoff"
	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/manifest_pr/manifests/branchtx"
)

func TestLinearBackOff(t *testing.T) {
	t.Parallel()

	b := &branchtx.LinearBackOff{Interval: time.Second}

	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 3*time.Second, b.NextBackOff())

	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
}

func TestDefaultRetryPolicy_waits_1s_then_2s_then_stops(t *testing.T) {
	t.Parallel()

	b := branchtx.BackOffForTest(branchtx.DefaultRetryPolicy())
	b.Reset()

	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestRetryPolicy_single_attempt(t *testing.T) {
	t.Parallel()

	b := branchtx.BackOffForTest(branchtx.RetryPolicy{
		Attempts: 1, Interval: time.Second,
	})
	b.Reset()

	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
