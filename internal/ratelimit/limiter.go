// Package ratelimit paces outbound probe traffic so a validation sweep
// does not hammer the remote API.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter provides global rate limiting plus a per-host minimum delay.
type Limiter struct {
	limiter      *rate.Limiter
	requestDelay time.Duration
	burstSize    int

	mu          sync.Mutex
	lastRequest map[string]time.Time
}

// Config contains rate limiting configuration.
type Config struct {
	// RequestsPerSecond limits the number of probe requests per second.
	RequestsPerSecond float64

	// BurstSize allows brief bursts above the rate limit. A validation
	// sweep launches all service probes at once, so the burst should
	// cover the catalog size.
	BurstSize int

	// MinDelay is the minimum delay between requests to the same host.
	MinDelay time.Duration
}

// DefaultConfig returns pacing defaults sized for one catalog sweep.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10.0,
		BurstSize:         10,
		MinDelay:          50 * time.Millisecond,
	}
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		requestDelay: cfg.MinDelay,
		burstSize:    cfg.BurstSize,
		lastRequest:  make(map[string]time.Time),
	}
}

// Wait blocks until the global rate limiter allows the request.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// WaitForHost blocks until a request to the given host is allowed,
// enforcing both the global rate and the per-host minimum delay.
func (l *Limiter) WaitForHost(ctx context.Context, host string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.lastRequest[host]; ok {
		if elapsed := time.Since(last); elapsed < l.requestDelay {
			select {
			case <-time.After(l.requestDelay - elapsed):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	l.lastRequest[host] = time.Now()
	return nil
}

// Allow checks whether a request is allowed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Stats contains rate limiter statistics.
type Stats struct {
	TrackedHosts int
	BurstSize    int
	RequestDelay time.Duration
}

// GetStats returns current rate limiter statistics.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		TrackedHosts: len(l.lastRequest),
		BurstSize:    l.burstSize,
		RequestDelay: l.requestDelay,
	}
}
