package server

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// GlobalConnectionLimiter caps concurrent feed connections per instance.
// Uses atomic operations for lock-free counting.
type GlobalConnectionLimiter struct {
	current atomic.Int64
	max     int64
}

func NewGlobalConnectionLimiter(max int64) *GlobalConnectionLimiter {
	return &GlobalConnectionLimiter{max: max}
}

// Acquire attempts to take a connection slot. Returns false at capacity.
func (l *GlobalConnectionLimiter) Acquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *GlobalConnectionLimiter) Release() {
	l.current.Add(-1)
}

// Current returns the current number of connections.
func (l *GlobalConnectionLimiter) Current() int64 {
	return l.current.Load()
}

// IPConnectionLimiter caps concurrent connections per client IP. Protects
// against a single source eating the global budget.
type IPConnectionLimiter struct {
	mu     sync.RWMutex
	ips    map[string]int
	maxPer int
}

func NewIPConnectionLimiter(maxPer int) *IPConnectionLimiter {
	return &IPConnectionLimiter{
		ips:    make(map[string]int),
		maxPer: maxPer,
	}
}

// Acquire attempts to take a slot for the given IP. Returns false when the
// IP is at its limit.
func (l *IPConnectionLimiter) Acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ips[ip] >= l.maxPer {
		return false
	}
	l.ips[ip]++
	return true
}

func (l *IPConnectionLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.ips[ip]; count > 0 {
		l.ips[ip] = count - 1
		if l.ips[ip] == 0 {
			delete(l.ips, ip)
		}
	}
}

// Count returns the current connection count for the given IP.
func (l *IPConnectionLimiter) Count(ip string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ips[ip]
}

// ConnectionRateLimiter caps the rate of new connections per IP with a token
// bucket per source (golang.org/x/time/rate).
type ConnectionRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewConnectionRateLimiter(connectionsPerSecond float64, burst int) *ConnectionRateLimiter {
	return &ConnectionRateLimiter{
		limiters:  make(map[string]*rateLimiterEntry),
		rate:      rate.Limit(connectionsPerSecond),
		burst:     burst,
		cleanupAt: time.Now().Add(5 * time.Minute),
	}
}

// Allow reports whether a new connection from the given IP is within rate.
func (l *ConnectionRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Now().After(l.cleanupAt) {
		l.cleanup()
		l.cleanupAt = time.Now().Add(5 * time.Minute)
	}

	entry, exists := l.limiters[ip]
	if !exists {
		entry = &rateLimiterEntry{
			limiter:  rate.NewLimiter(l.rate, l.burst),
			lastSeen: time.Now(),
		}
		l.limiters[ip] = entry
	}

	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanup removes limiters idle for 10 minutes. Must be called with mu held.
func (l *ConnectionRateLimiter) cleanup() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

// ConnectionLimits combines the three limiters guarding the feed endpoint.
type ConnectionLimits struct {
	global *GlobalConnectionLimiter
	perIP  *IPConnectionLimiter
	rate   *ConnectionRateLimiter
}

func NewConnectionLimits(globalMax int64, perIPMax int, connectionsPerSecond float64, burst int) *ConnectionLimits {
	return &ConnectionLimits{
		global: NewGlobalConnectionLimiter(globalMax),
		perIP:  NewIPConnectionLimiter(perIPMax),
		rate:   NewConnectionRateLimiter(connectionsPerSecond, burst),
	}
}

// LimitReason describes why a connection was rejected.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// Acquire attempts all three limits for the given IP. Returns false and the
// first limit hit; partially acquired limits are rolled back.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.rate.Allow(ip) {
		return false, LimitReasonRate
	}

	if !l.global.Acquire() {
		return false, LimitReasonGlobal
	}

	if !l.perIP.Acquire(ip) {
		l.global.Release()
		return false, LimitReasonPerIP
	}

	return true, ""
}

// Release releases all limits for the given IP.
func (l *ConnectionLimits) Release(ip string) {
	l.perIP.Release(ip)
	l.global.Release()
}
