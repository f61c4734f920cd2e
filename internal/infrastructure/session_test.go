package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerGetOrCreate(t *testing.T) {
	sm := NewSessionManager(2 * time.Second)

	a := sm.GetOrCreate("+15550100101")
	b := sm.GetOrCreate("+15550100101")
	c := sm.GetOrCreate("+15550100102")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "+15550100101", a.Phone)
}

func TestSessionManagerDefaultDebounce(t *testing.T) {
	assert.Equal(t, 2*time.Second, NewSessionManager(0).Debounce())
	assert.Equal(t, 5*time.Second, NewSessionManager(5*time.Second).Debounce())
}

func TestSessionTryStartBlocksWhileInFlight(t *testing.T) {
	sm := NewSessionManager(time.Second)
	s := sm.GetOrCreate("+15550100101")

	require.True(t, s.TryStart(sm.Debounce()))
	assert.False(t, s.TryStart(sm.Debounce()), "second text lands while the first run is active")

	s.Finish()
	// The blocked attempt refreshed lastInbound, so the window applies again.
	assert.False(t, s.TryStart(sm.Debounce()))
}

func TestSessionTryStartDebounces(t *testing.T) {
	sm := NewSessionManager(2 * time.Second)
	s := sm.GetOrCreate("+15550100101")

	require.True(t, s.TryStart(sm.Debounce()))
	s.Finish()

	assert.False(t, s.TryStart(sm.Debounce()), "back-to-back texts collapse into one run")

	s.mu.Lock()
	s.lastInbound = time.Now().Add(-3 * time.Second)
	s.mu.Unlock()

	assert.True(t, s.TryStart(sm.Debounce()), "quiet gap reopens the session")
}

func TestSessionFinishAllowsRestartAfterGap(t *testing.T) {
	sm := NewSessionManager(time.Second)
	s := sm.GetOrCreate("+15550100101")

	require.True(t, s.TryStart(sm.Debounce()))
	s.Finish()

	s.mu.Lock()
	s.lastInbound = time.Now().Add(-2 * time.Second)
	s.mu.Unlock()

	assert.True(t, s.TryStart(sm.Debounce()))
}
