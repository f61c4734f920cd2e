package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets breaker tests move through the cooldown without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 4, 16, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(threshold, cooldown)
	cb.now = clock.now
	return cb, clock
}

func TestBreakerStaysClosedUnderThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, 30*time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, "closed", cb.State())
	assert.True(t, cb.Allow())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb, clock := newTestBreaker(3, 30*time.Second)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, "open", cb.State())
	assert.False(t, cb.Allow())

	clock.advance(29 * time.Second)
	assert.False(t, cb.Allow(), "still inside the cooldown")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3, 30*time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, "closed", cb.State(), "failures do not accumulate across a success")
}

func TestBreakerHalfOpenAdmitsOneProbe(t *testing.T) {
	cb, clock := newTestBreaker(2, 30*time.Second)
	cb.RecordFailure()
	cb.RecordFailure()
	require.Equal(t, "open", cb.State())

	clock.advance(30 * time.Second)
	assert.True(t, cb.Allow(), "cooldown elapsed, one probe goes through")
	assert.Equal(t, "half_open", cb.State())
	assert.False(t, cb.Allow(), "second caller waits for the probe verdict")
}

func TestBreakerProbeOutcomes(t *testing.T) {
	t.Run("probe success closes", func(t *testing.T) {
		cb, clock := newTestBreaker(2, 30*time.Second)
		cb.RecordFailure()
		cb.RecordFailure()
		clock.advance(31 * time.Second)
		require.True(t, cb.Allow())

		cb.RecordSuccess()
		assert.Equal(t, "closed", cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("probe failure reopens with a fresh cooldown", func(t *testing.T) {
		cb, clock := newTestBreaker(2, 30*time.Second)
		cb.RecordFailure()
		cb.RecordFailure()
		clock.advance(31 * time.Second)
		require.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, "open", cb.State())
		assert.False(t, cb.Allow())

		clock.advance(30 * time.Second)
		assert.True(t, cb.Allow(), "new cooldown counted from the failed probe")
	})
}

func TestBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(0, 0)
	assert.Equal(t, 5, cb.threshold)
	assert.Equal(t, 30*time.Second, cb.cooldown)
}

// flakyLLM fails a scripted number of times before recovering.
type flakyLLM struct {
	failures int
	err      error
	calls    int
}

func (f *flakyLLM) Complete(context.Context, string, string) (string, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		if f.err != nil {
			return "", f.err
		}
		return "", errors.New("upstream 500")
	}
	return "ok", nil
}

func TestGuardedLLMTripsAndShortCircuits(t *testing.T) {
	inner := &flakyLLM{failures: 100}
	cb, _ := newTestBreaker(3, 30*time.Second)
	g := NewGuardedLLM(inner, cb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.Complete(ctx, "sys", "user")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	require.Equal(t, "open", cb.State())

	_, err := g.Complete(ctx, "sys", "user")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, inner.calls, "open breaker never reaches the provider")
}

func TestGuardedLLMRecoversThroughProbe(t *testing.T) {
	inner := &flakyLLM{failures: 2}
	cb, clock := newTestBreaker(2, 30*time.Second)
	g := NewGuardedLLM(inner, cb)
	ctx := context.Background()

	g.Complete(ctx, "sys", "user")
	g.Complete(ctx, "sys", "user")
	require.Equal(t, "open", cb.State())

	clock.advance(31 * time.Second)
	out, err := g.Complete(ctx, "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "closed", cb.State())
}

func TestGuardedLLMIgnoresCancellation(t *testing.T) {
	inner := &flakyLLM{failures: 100, err: context.Canceled}
	cb, _ := newTestBreaker(2, 30*time.Second)
	g := NewGuardedLLM(inner, cb)

	for i := 0; i < 5; i++ {
		_, err := g.Complete(context.Background(), "sys", "user")
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", cb.State(), "caller hang-ups are not provider failures")
}
