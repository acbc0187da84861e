// Package ratelimit paces outgoing requests per origin. One Registry
// is constructed per process and shared by every concurrent pipeline
// run, so the effective request rate to any single origin stays bounded
// no matter how many chains target it at once.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Budget is the token-bucket configuration for one origin.
type Budget struct {
	// RefillRate is sustained tokens (requests) per second.
	RefillRate float64
	// Burst is the bucket capacity.
	Burst int
}

type bucket struct {
	limiter *rate.Limiter
	// backoffUntil is a hard deadline set from an observed Retry-After.
	// It supersedes normal refill: Acquire never returns before it.
	backoffUntil time.Time
	lastSeen     time.Time
}

// Registry holds one token bucket per origin. Safe for concurrent use;
// refill bookkeeping and token decrement are atomic per origin.
type Registry struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	fallback Budget
	done     chan struct{}
}

// NewRegistry builds a Registry with a default budget for origins that
// have no declared rate limit. A janitor evicts buckets unused for an
// hour so the map does not grow without bound.
func NewRegistry(fallback Budget) *Registry {
	r := &Registry{
		buckets:  make(map[string]*bucket),
		fallback: fallback,
		done:     make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Configure pins a budget for an origin. Reconfiguring an existing
// bucket keeps its accumulated state only if the budget is unchanged.
func (r *Registry) Configure(origin string, budget Budget) {
	if budget.RefillRate <= 0 || budget.Burst <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[origin]
	if ok && b.limiter.Limit() == rate.Limit(budget.RefillRate) && b.limiter.Burst() == budget.Burst {
		return
	}
	r.buckets[origin] = &bucket{
		limiter:  rate.NewLimiter(rate.Limit(budget.RefillRate), budget.Burst),
		lastSeen: time.Now(),
	}
}

// Acquire blocks the caller until a token is available for the origin
// and any active backoff deadline has passed. The deadline is honored
// even when tokens are nominally available.
func (r *Registry) Acquire(ctx context.Context, origin string) error {
	b := r.bucket(origin)
	for {
		if err := r.waitBackoff(ctx, b, origin); err != nil {
			return err
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		// A Retry-After may have landed while waiting for a token; in
		// that case the token is spent but the deadline still binds.
		r.mu.Lock()
		again := time.Now().Before(b.backoffUntil)
		r.mu.Unlock()
		if !again {
			return nil
		}
	}
}

// SetBackoff records a server-advertised wait for an origin. A zero or
// past deadline clears nothing; later deadlines replace earlier ones.
func (r *Registry) SetBackoff(origin string, until time.Time) {
	b := r.bucket(origin)
	r.mu.Lock()
	defer r.mu.Unlock()
	if until.After(b.backoffUntil) {
		b.backoffUntil = until
		slog.Warn("origin backoff recorded", "origin", origin, "until", until)
	}
}

// Close stops the janitor goroutine.
func (r *Registry) Close() {
	close(r.done)
}

func (r *Registry) bucket(origin string) *bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[origin]
	if !ok {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Limit(r.fallback.RefillRate), r.fallback.Burst),
		}
		r.buckets[origin] = b
	}
	b.lastSeen = time.Now()
	return b
}

func (r *Registry) waitBackoff(ctx context.Context, b *bucket, origin string) error {
	for {
		r.mu.Lock()
		until := b.backoffUntil
		r.mu.Unlock()

		wait := time.Until(until)
		if wait <= 0 {
			return nil
		}
		slog.Debug("honoring origin backoff", "origin", origin, "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// cleanupLoop evicts buckets not seen in the last hour every 5 minutes.
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-1 * time.Hour)
			r.mu.Lock()
			for origin, b := range r.buckets {
				if b.lastSeen.Before(cutoff) && time.Now().After(b.backoffUntil) {
					delete(r.buckets, origin)
				}
			}
			r.mu.Unlock()
		}
	}
}
