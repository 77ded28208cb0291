package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalConnectionLimiter_AcquireRelease(t *testing.T) {
	limiter := NewGlobalConnectionLimiter(2)

	assert.True(t, limiter.Acquire())
	assert.True(t, limiter.Acquire())
	assert.False(t, limiter.Acquire(), "third acquire should fail at capacity")

	limiter.Release()
	assert.True(t, limiter.Acquire(), "released slot should be reusable")
	assert.Equal(t, int64(2), limiter.Current())
}

func TestGlobalConnectionLimiter_ConcurrentAcquires(t *testing.T) {
	limiter := NewGlobalConnectionLimiter(50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Acquire() {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, acquired, "exactly max acquires should succeed")
	assert.Equal(t, int64(50), limiter.Current())
}

func TestIPConnectionLimiter_PerIPCap(t *testing.T) {
	limiter := NewIPConnectionLimiter(2)

	assert.True(t, limiter.Acquire("10.0.0.1"))
	assert.True(t, limiter.Acquire("10.0.0.1"))
	assert.False(t, limiter.Acquire("10.0.0.1"))

	// A different IP has its own budget.
	assert.True(t, limiter.Acquire("10.0.0.2"))

	limiter.Release("10.0.0.1")
	assert.True(t, limiter.Acquire("10.0.0.1"))
}

func TestIPConnectionLimiter_ReleaseRemovesEmptyEntries(t *testing.T) {
	limiter := NewIPConnectionLimiter(5)

	require.True(t, limiter.Acquire("10.0.0.1"))
	limiter.Release("10.0.0.1")

	assert.Equal(t, 0, limiter.Count("10.0.0.1"))
	assert.Empty(t, limiter.ips)
}

func TestIPConnectionLimiter_ReleaseUnknownIP(t *testing.T) {
	limiter := NewIPConnectionLimiter(5)

	// Must not underflow.
	limiter.Release("10.0.0.1")
	assert.Equal(t, 0, limiter.Count("10.0.0.1"))
}

func TestConnectionRateLimiter_BurstThenThrottle(t *testing.T) {
	limiter := NewConnectionRateLimiter(1, 3)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "burst exhausted")

	// Separate IPs keep separate buckets.
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestConnectionLimits_RateHitFirst(t *testing.T) {
	limits := NewConnectionLimits(100, 10, 1, 1)

	ok, _ := limits.Acquire("10.0.0.1")
	require.True(t, ok)

	ok, reason := limits.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)
}

func TestConnectionLimits_GlobalHit(t *testing.T) {
	limits := NewConnectionLimits(1, 10, 1000, 1000)

	ok, _ := limits.Acquire("10.0.0.1")
	require.True(t, ok)

	ok, reason := limits.Acquire("10.0.0.2")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)
}

func TestConnectionLimits_PerIPHitRollsBackGlobal(t *testing.T) {
	limits := NewConnectionLimits(100, 1, 1000, 1000)

	ok, _ := limits.Acquire("10.0.0.1")
	require.True(t, ok)

	ok, reason := limits.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)

	// The global slot taken before the per-IP check must be returned.
	assert.Equal(t, int64(1), limits.global.Current())
}

func TestConnectionLimits_ReleaseFreesBoth(t *testing.T) {
	limits := NewConnectionLimits(1, 1, 1000, 1000)

	ok, _ := limits.Acquire("10.0.0.1")
	require.True(t, ok)

	limits.Release("10.0.0.1")

	ok, _ = limits.Acquire("10.0.0.1")
	assert.True(t, ok)
}
