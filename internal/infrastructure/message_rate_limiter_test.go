package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := NewMessageRateLimiter(6, 3)
	defer rl.Stop()

	phone := "+15550100101"
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(phone), "burst slot %d", i)
	}
	assert.False(t, rl.Allow(phone), "burst exhausted")
}

func TestRateLimiterIsPerPhone(t *testing.T) {
	rl := NewMessageRateLimiter(6, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("+15550100101"))
	require.False(t, rl.Allow("+15550100101"))
	assert.True(t, rl.Allow("+15550100102"), "a noisy client does not starve the others")
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := NewMessageRateLimiter(60, 1) // one token per second
	defer rl.Stop()

	phone := "+15550100101"
	require.True(t, rl.Allow(phone))
	require.False(t, rl.Allow(phone))

	// Backdate the bucket instead of sleeping through the refill.
	rl.mu.Lock()
	rl.buckets[phone].lastUpdate = time.Now().Add(-2 * time.Second)
	rl.mu.Unlock()

	assert.True(t, rl.Allow(phone))
}

func TestRateLimiterRefillCapsAtBurst(t *testing.T) {
	rl := NewMessageRateLimiter(60, 2)
	defer rl.Stop()

	phone := "+15550100101"
	require.True(t, rl.Allow(phone))

	rl.mu.Lock()
	rl.buckets[phone].lastUpdate = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	assert.True(t, rl.Allow(phone))
	assert.True(t, rl.Allow(phone))
	assert.False(t, rl.Allow(phone), "an idle hour does not bank more than the burst")
}

func TestRateLimiterWaitTime(t *testing.T) {
	rl := NewMessageRateLimiter(60, 1)
	defer rl.Stop()

	phone := "+15550100101"
	assert.Equal(t, time.Duration(0), rl.WaitTime(phone), "unknown phone waits nothing")

	require.True(t, rl.Allow(phone))
	wait := rl.WaitTime(phone)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Second)
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewMessageRateLimiter(6, 1)
	defer rl.Stop()

	phone := "+15550100101"
	require.True(t, rl.Allow(phone))
	require.False(t, rl.Allow(phone))

	rl.Reset(phone)
	assert.True(t, rl.Allow(phone))
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl := NewMessageRateLimiter(6, 1)
	defer rl.Stop()

	rl.Allow("+15550100101")
	rl.Allow("+15550100102")

	rl.mu.Lock()
	rl.buckets["+15550100101"].lastUpdate = time.Now().Add(-11 * time.Minute)
	rl.mu.Unlock()

	rl.evictIdle(time.Now())

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.NotContains(t, rl.buckets, "+15550100101")
	assert.Contains(t, rl.buckets, "+15550100102")
}

func TestRateLimiterClampsConfig(t *testing.T) {
	rl := NewMessageRateLimiter(0, 0)
	defer rl.Stop()

	assert.InDelta(t, 1.0/60.0, rl.rate, 1e-9)
	assert.Equal(t, 1.0, rl.maxTokens)
}

func TestRateLimiterStats(t *testing.T) {
	rl := NewMessageRateLimiter(6, 2)
	defer rl.Stop()

	rl.Allow("+15550100101")
	rl.Allow("+15550100102")

	stats := rl.Stats()
	assert.Equal(t, 2, stats["active_phones"])
	assert.Equal(t, 2.0, stats["burst"])
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewMessageRateLimiter(6, 1)
	rl.Stop()
	rl.Stop()
}
