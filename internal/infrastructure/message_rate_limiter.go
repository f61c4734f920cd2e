package infrastructure

import (
	"sync"
	"time"
)

// MessageRateLimiter implements token-bucket rate limiting per client phone.
// It caps how often one client can trigger the triage pipeline; messages over
// the limit are still stored, just not processed.
type MessageRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*tokenBucket
	rate        float64 // tokens per second
	maxTokens   float64 // burst capacity
	cleanupTick time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMessageRateLimiter creates a limiter allowing perMinute messages per
// phone with the given burst capacity.
func NewMessageRateLimiter(perMinute float64, burst int) *MessageRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*tokenBucket),
		rate:        perMinute / 60.0,
		maxTokens:   float64(burst),
		cleanupTick: 5 * time.Minute,
		stop:        make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether this phone may trigger processing now, consuming one
// token when it can.
func (rl *MessageRateLimiter) Allow(phone string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	bucket, exists := rl.buckets[phone]
	if !exists {
		rl.buckets[phone] = &tokenBucket{
			tokens:     rl.maxTokens - 1,
			lastUpdate: now,
		}
		return true
	}

	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// WaitTime returns how long until the next message from this phone would be
// allowed.
func (rl *MessageRateLimiter) WaitTime(phone string) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	bucket, exists := rl.buckets[phone]
	if !exists {
		return 0
	}

	elapsed := time.Since(bucket.lastUpdate).Seconds()
	currentTokens := bucket.tokens + elapsed*rl.rate
	if currentTokens >= 1 {
		return 0
	}

	needed := 1 - currentTokens
	return time.Duration(needed / rl.rate * float64(time.Second))
}

// Reset clears the bucket for one phone.
func (rl *MessageRateLimiter) Reset(phone string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, phone)
}

// Stop terminates the cleanup goroutine.
func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *MessageRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

// evictIdle drops buckets idle for more than ten minutes.
func (rl *MessageRateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for phone, bucket := range rl.buckets {
		if now.Sub(bucket.lastUpdate) > 10*time.Minute {
			delete(rl.buckets, phone)
		}
	}
}

// Stats returns limiter counters for the status endpoint.
func (rl *MessageRateLimiter) Stats() map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return map[string]interface{}{
		"active_phones": len(rl.buckets),
		"rate":          rl.rate,
		"burst":         rl.maxTokens,
	}
}
