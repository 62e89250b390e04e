// Package ratelimit provides a lock-free token bucket used to pace calls to
// upstream market data providers.
package ratelimit

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// bucketState is the immutable snapshot swapped atomically on every reserve.
type bucketState struct {
	tokens     float64
	lastRefill int64 // nanoseconds since the limiter's start
}

// RateLimiter is a token bucket with nanosecond resolution. Tokens refill at
// one per (1e9 / permitsPerSecond) nanoseconds, capped at the burst size.
// State updates are lock-free compare-and-swap; waiters spin for
// sub-millisecond waits and park otherwise.
type RateLimiter struct {
	rateNanos int64   // nanoseconds minted per token
	maxBurst  float64 // token accumulation ceiling
	start     time.Time
	state     atomic.Pointer[bucketState]
}

// defaultBurstSeconds is the burst window applied by New.
const defaultBurstSeconds = 60.0

// New creates a limiter producing permitsPerSecond tokens with a one-minute
// burst capacity.
func New(permitsPerSecond float64) (*RateLimiter, error) {
	return NewWithBurst(permitsPerSecond, defaultBurstSeconds)
}

// NewWithBurst creates a limiter producing permitsPerSecond tokens that can
// accumulate up to permitsPerSecond*maxBurstSeconds unused tokens. The bucket
// starts full.
func NewWithBurst(permitsPerSecond, maxBurstSeconds float64) (*RateLimiter, error) {
	if permitsPerSecond <= 0 || maxBurstSeconds <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"rate and burst must be positive, got rate=%f burst=%f", permitsPerSecond, maxBurstSeconds)
	}

	limiter := &RateLimiter{
		rateNanos: int64(float64(time.Second) / permitsPerSecond),
		maxBurst:  permitsPerSecond * maxBurstSeconds,
		start:     time.Now(),
	}
	limiter.state.Store(&bucketState{
		tokens:     limiter.maxBurst,
		lastRefill: 0,
	})

	return limiter, nil
}

// Acquire blocks until the requested permits have been consumed from the
// bucket or the context is cancelled. Waiting does not reserve: after each
// wait the bucket is re-checked and consumption retried, so concurrent
// acquirers cannot overdraw.
func (r *RateLimiter) Acquire(ctx context.Context, permits float64) error {
	if permits <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "permits must be positive, got %f", permits)
	}

	for {
		waitNanos := r.reserve(permits)
		if waitNanos == 0 {
			return nil
		}

		if err := r.wait(ctx, time.Duration(waitNanos)); err != nil {
			return err
		}
	}
}

// TryAcquire attempts to consume the requested permits, waiting at most
// timeout. Returns false when the permits cannot be had in time; a zero
// timeout never waits.
func (r *RateLimiter) TryAcquire(permits float64, timeout time.Duration) bool {
	if permits <= 0 {
		return false
	}

	deadline := time.Now().Add(timeout)

	for {
		waitNanos := r.reserve(permits)
		if waitNanos == 0 {
			return true
		}

		if timeout <= 0 {
			return false
		}

		waitFor := time.Duration(waitNanos)
		if time.Now().Add(waitFor).After(deadline) {
			return false
		}

		if err := r.wait(context.Background(), waitFor); err != nil {
			return false
		}
	}
}

// reserve refills the bucket and tries to consume permits in one CAS. Returns
// zero when the permits were consumed, otherwise the nanoseconds until enough
// tokens will exist. No tokens are taken on a non-zero return.
func (r *RateLimiter) reserve(permits float64) int64 {
	for {
		current := r.state.Load()
		now := time.Since(r.start).Nanoseconds()

		delta := now - current.lastRefill
		if delta < 0 {
			delta = 0
		}

		newTokens := math.Min(r.maxBurst, current.tokens+float64(delta)/float64(r.rateNanos))

		if newTokens < permits {
			return int64((permits - newTokens) * float64(r.rateNanos))
		}

		next := &bucketState{
			tokens:     newTokens - permits,
			lastRefill: now,
		}
		if r.state.CompareAndSwap(current, next) {
			return 0
		}

		// CAS lost to another acquirer, retry.
		runtime.Gosched()
	}
}

// wait blocks for d, spinning when the wait is short enough that timer
// wakeups would overshoot it.
func (r *RateLimiter) wait(ctx context.Context, d time.Duration) error {
	if d <= time.Millisecond {
		deadline := time.Now().Add(d)
		for time.Now().Before(deadline) {
			if err := ctx.Err(); err != nil {
				return err
			}

			runtime.Gosched()
		}

		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
