package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"

	"github.com/itt1233/augeo/internal/metrics"
)

// CircuitBreakerHook implements redis.Hook to add circuit breaker protection
// to all Redis operations. When Redis is down the breaker fails commands fast
// instead of letting every request wait out a dial timeout.
//
// Registry listings (hgetall) keep working while the circuit is open: the
// last successful result per key is cached and served stale, so the streams
// API stays readable through a short Redis outage.
type CircuitBreakerHook struct {
	cb    circuitbreaker.CircuitBreaker[any]
	cache *hashCache
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// hashCache holds the last successful hgetall result per key.
type hashCache struct {
	mu     sync.RWMutex
	values map[string]cachedHash
}

type cachedHash struct {
	data      map[string]string
	timestamp time.Time
}

const fallbackTTL = 5 * time.Minute

// NewCircuitBreakerHook creates a circuit breaker hook with the following
// settings:
// - WithFailureRateThreshold: 60% failure rate, min 5 requests, 10s rolling window
// - WithDelay: 30s before transitioning from open to half-open
// - WithSuccessThreshold: 1 successful request in half-open to close
func NewCircuitBreakerHook() *CircuitBreakerHook {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "redis",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)

			metrics.CircuitBreakerStateChanges.WithLabelValues("redis", e.NewState.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues("redis").Set(stateToFloat(e.NewState))
		}).
		Build()

	return &CircuitBreakerHook{
		cb: cb,
		cache: &hashCache{
			values: make(map[string]cachedHash),
		},
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// DialHook wraps connection establishment with circuit breaker
func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !h.cb.TryAcquirePermit() {
			return nil, fmt.Errorf("circuit breaker dial failed: %w", circuitbreaker.ErrOpen)
		}
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.cb.RecordError(err)
			return nil, fmt.Errorf("circuit breaker dial failed: %w", err)
		}
		h.cb.RecordSuccess()
		return conn, nil
	}
}

// ProcessHook wraps command execution with circuit breaker and caching
func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return h.handleFallback(cmd)
		}

		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, goredis.Nil) {
			h.cb.RecordError(err)
		} else {
			h.cb.RecordSuccess()
		}

		if err == nil {
			h.cacheResult(cmd)
		}

		if err != nil {
			return fmt.Errorf("circuit breaker process failed: %w", err)
		}
		return nil
	}
}

// ProcessPipelineHook wraps pipeline execution with circuit breaker
func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
		}

		err := next(ctx, cmds)
		if err != nil {
			h.cb.RecordError(err)
			return fmt.Errorf("circuit breaker pipeline failed: %w", err)
		}
		h.cb.RecordSuccess()
		return nil
	}
}

// handleFallback serves cached hash listings while the circuit is open.
// Writes fail fast; stale registry data is still useful, stale writes are not.
func (h *CircuitBreakerHook) handleFallback(cmd goredis.Cmder) error {
	if cmd.Name() == "hgetall" {
		if data, ok := h.getFromCache(cmd); ok {
			slog.Debug("Circuit breaker open, serving cached listing", "args", cmd.Args())
			if c, ok := cmd.(*goredis.MapStringStringCmd); ok {
				c.SetVal(data)
				return nil
			}
		}
	}
	return fmt.Errorf("redis circuit breaker open: %w", circuitbreaker.ErrOpen)
}

// cacheResult stores successful hgetall results for future fallback
func (h *CircuitBreakerHook) cacheResult(cmd goredis.Cmder) {
	if cmd.Name() != "hgetall" {
		return
	}
	c, ok := cmd.(*goredis.MapStringStringCmd)
	if !ok {
		return
	}
	args := cmd.Args()
	if len(args) < 2 {
		return
	}
	key := fmt.Sprintf("%v", args[1])

	data, err := c.Result()
	if err != nil {
		return
	}

	h.cache.mu.Lock()
	h.cache.values[key] = cachedHash{data: data, timestamp: time.Now()}
	h.cache.mu.Unlock()
}

func (h *CircuitBreakerHook) getFromCache(cmd goredis.Cmder) (map[string]string, bool) {
	args := cmd.Args()
	if len(args) < 2 {
		return nil, false
	}
	key := fmt.Sprintf("%v", args[1])

	h.cache.mu.RLock()
	defer h.cache.mu.RUnlock()

	entry, ok := h.cache.values[key]
	if !ok || time.Since(entry.timestamp) > fallbackTTL {
		return nil, false
	}
	return entry.data, true
}
