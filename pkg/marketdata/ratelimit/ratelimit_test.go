package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-equity/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RateLimiterTestSuite struct {
	suite.Suite
}

func TestRateLimiterTestSuite(t *testing.T) {
	suite.Run(t, new(RateLimiterTestSuite))
}

func (suite *RateLimiterTestSuite) TestNewValidation() {
	tests := []struct {
		name             string
		permitsPerSecond float64
		maxBurstSeconds  float64
		expectError      bool
	}{
		{
			name:             "valid",
			permitsPerSecond: 10,
			maxBurstSeconds:  1,
			expectError:      false,
		},
		{
			name:             "zero rate",
			permitsPerSecond: 0,
			maxBurstSeconds:  1,
			expectError:      true,
		},
		{
			name:             "negative rate",
			permitsPerSecond: -5,
			maxBurstSeconds:  1,
			expectError:      true,
		},
		{
			name:             "zero burst",
			permitsPerSecond: 10,
			maxBurstSeconds:  0,
			expectError:      true,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			limiter, err := NewWithBurst(tc.permitsPerSecond, tc.maxBurstSeconds)
			if tc.expectError {
				suite.Require().Error(err)
				suite.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
				suite.Assert().Nil(limiter)
			} else {
				suite.Require().NoError(err)
				suite.Assert().NotNil(limiter)
			}
		})
	}
}

func (suite *RateLimiterTestSuite) TestBurstAllowsImmediateAcquires() {
	// 10 permits/s with a 1s burst window: the bucket starts with 10 tokens.
	limiter, err := NewWithBurst(10, 1)
	suite.Require().NoError(err)

	for i := 0; i < 10; i++ {
		suite.Require().True(limiter.TryAcquire(1, 0), "acquire %d should not wait", i)
	}

	// Bucket drained; an immediate acquire must fail.
	suite.Assert().False(limiter.TryAcquire(1, 0))
}

func (suite *RateLimiterTestSuite) TestTokensNeverExceedBurst() {
	// 1000 permits/s capped at 10 tokens of burst.
	limiter, err := NewWithBurst(1000, 0.01)
	suite.Require().NoError(err)

	time.Sleep(100 * time.Millisecond)

	suite.Assert().True(limiter.TryAcquire(10, 0))
	// More than the cap can never accumulate, no matter how long we slept.
	suite.Assert().False(limiter.TryAcquire(10, 0))
}

func (suite *RateLimiterTestSuite) TestRefillOverTime() {
	// 100 permits/s, bucket starts with one token.
	limiter, err := NewWithBurst(100, 0.01)
	suite.Require().NoError(err)

	suite.Require().True(limiter.TryAcquire(1, 0))
	suite.Require().False(limiter.TryAcquire(1, 0))

	// 50ms at 100/s mints ~5 tokens, bounded by the 1-token burst.
	time.Sleep(50 * time.Millisecond)
	suite.Assert().True(limiter.TryAcquire(1, 0))
}

func (suite *RateLimiterTestSuite) TestTryAcquireWaitsWithinTimeout() {
	// 100 permits/s: a fresh token every 10ms.
	limiter, err := NewWithBurst(100, 0.01)
	suite.Require().NoError(err)
	suite.Require().True(limiter.TryAcquire(1, 0))

	start := time.Now()
	acquired := limiter.TryAcquire(1, 500*time.Millisecond)
	suite.Assert().True(acquired)
	suite.Assert().Less(time.Since(start), 500*time.Millisecond)
}

func (suite *RateLimiterTestSuite) TestTryAcquireRespectsTimeout() {
	// 1 permit/s: the next token is a full second away.
	limiter, err := NewWithBurst(1, 1)
	suite.Require().NoError(err)
	suite.Require().True(limiter.TryAcquire(1, 0))

	start := time.Now()
	acquired := limiter.TryAcquire(1, 50*time.Millisecond)
	suite.Assert().False(acquired)
	// Rejection is a computation, not a wait.
	suite.Assert().Less(time.Since(start), 50*time.Millisecond)
}

func (suite *RateLimiterTestSuite) TestAcquireBlocksUntilRefill() {
	// 50 permits/s: 20ms per token.
	limiter, err := NewWithBurst(50, 0.02)
	suite.Require().NoError(err)
	suite.Require().True(limiter.TryAcquire(1, 0))

	start := time.Now()
	suite.Require().NoError(limiter.Acquire(context.Background(), 1))
	suite.Assert().GreaterOrEqual(time.Since(start), 10*time.Millisecond)
}

func (suite *RateLimiterTestSuite) TestAcquireCancelled() {
	limiter, err := NewWithBurst(1, 1)
	suite.Require().NoError(err)
	suite.Require().True(limiter.TryAcquire(1, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = limiter.Acquire(ctx, 1)
	suite.Require().Error(err)
	// Cancellation must not wait out the full token interval (1s here).
	suite.Assert().Less(time.Since(start), 500*time.Millisecond)
}

func (suite *RateLimiterTestSuite) TestAcquireInvalidPermits() {
	limiter, err := New(10)
	suite.Require().NoError(err)

	err = limiter.Acquire(context.Background(), 0)
	suite.Require().Error(err)
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.Assert().False(limiter.TryAcquire(-1, 0))
}

func (suite *RateLimiterTestSuite) TestConcurrentAcquiresNeverOverdraw() {
	// 1 permit/s with 5 tokens of burst: during the test window the refill
	// cannot produce a 6th token, so exactly 5 goroutines may win.
	limiter, err := NewWithBurst(1, 5)
	suite.Require().NoError(err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if limiter.TryAcquire(1, 0) {
				successes.Add(1)
			}
		}()
	}

	wg.Wait()
	suite.Assert().Equal(int64(5), successes.Load())
}
