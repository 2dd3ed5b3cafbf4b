// Package ratelimit enforces per-organization, per-resource request budgets
// ahead of the dispatcher reaching the database. Buckets are token-bucket
// limiters keyed by (organization_id, Resource), kept in a map guarded by a
// mutex and swept by a background cleanup ticker so idle tenants don't
// accumulate state.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/scuffle-video/api/internal/ids"
)

// Resource identifies which rate-limit bucket a request DTO consumes.
type Resource string

// Config describes one resource's allowance.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter is a process-local token-bucket limiter keyed by
// (organization, resource).
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	configs  map[Resource]Config
	lastSeen map[string]time.Time

	cleanupInterval time.Duration
	idleThreshold    time.Duration

	stop chan struct{}
}

// New builds a Limiter from a per-resource configuration table and starts
// its background cleanup goroutine.
func New(configs map[Resource]Config) *Limiter {
	l := &Limiter{
		limiters:        make(map[string]*rate.Limiter),
		configs:         configs,
		lastSeen:        make(map[string]time.Time),
		cleanupInterval: 5 * time.Minute,
		idleThreshold:   10 * time.Minute,
		stop:            make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request against resource by organizationID may
// proceed right now, consuming one token if so.
func (l *Limiter) Allow(organizationID ids.ID, resource Resource) bool {
	return l.getLimiter(organizationID, resource).Allow()
}

func (l *Limiter) getLimiter(organizationID ids.ID, resource Resource) *rate.Limiter {
	key := organizationID.String() + ":" + string(resource)

	l.mu.RLock()
	limiter, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		l.mu.Lock()
		l.lastSeen[key] = time.Now()
		l.mu.Unlock()
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[key]; ok {
		l.lastSeen[key] = time.Now()
		return limiter
	}

	cfg, ok := l.configs[resource]
	if !ok {
		// No configured budget for this resource: default to a conservative
		// fallback rather than allowing unlimited throughput.
		cfg = Config{RequestsPerSecond: 5, Burst: 10}
	}

	limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	l.limiters[key] = limiter
	l.lastSeen[key] = time.Now()
	return limiter
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-l.idleThreshold)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.limiters, key)
			delete(l.lastSeen, key)
		}
	}
}

// Close stops the background cleanup goroutine.
func (l *Limiter) Close() {
	close(l.stop)
}
