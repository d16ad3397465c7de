// Package ratelimit implements the fixed-window limiter shared by the auth
// endpoints.
//
// A window opens on the first hit for a key and covers [start, start+window).
// Hits inside the window increment the counter; the request is allowed while
// count <= max. Once the window has elapsed the next hit starts a fresh window
// with count 1, whatever the previous count was. Bursts across a window
// boundary are not smoothed.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Policy is the budget for one bucket.
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Counter is the state of a key after one increment.
type Counter struct {
	Count   int
	ResetAt time.Time
}

// Store increments the counter of key inside a window of the given length.
// Implementations must make the increment atomic.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (Counter, error)
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the wait until the window resets, rounded up to whole seconds
// and never below one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	secs := (wait + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}

// Limiter applies policies on top of a Store.
type Limiter struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLimiter(store Store, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{store: store, logger: logger, now: time.Now}
}

// Check counts one hit for key under policy. Store failures let the request
// through and are logged.
func (l *Limiter) Check(ctx context.Context, key string, policy Policy) Decision {
	bucketKey := policy.Name + ":" + key
	counter, err := l.store.Increment(ctx, bucketKey, policy.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request",
			slog.String("bucket", policy.Name), slog.Any("error", err))
		return Decision{Allowed: true, Limit: policy.MaxRequests, Remaining: policy.MaxRequests, ResetAt: l.now().Add(policy.Window)}
	}
	remaining := policy.MaxRequests - counter.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   counter.Count <= policy.MaxRequests,
		Limit:     policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   counter.ResetAt,
	}
}

// Now exposes the limiter clock so callers compute Retry-After consistently.
func (l *Limiter) Now() time.Time { return l.now() }
