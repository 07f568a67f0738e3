package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window for the limit
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter implements fixed-window rate limiting using Redis. It
// guards the cron endpoints against runaway external schedulers; the
// sweep lease is what actually serializes sweeps.
type RateLimiter struct {
	client *Client
	logger *zap.Logger
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(client *Client, logger *zap.Logger, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		config: config,
	}
}

// Allow checks if a request is allowed under the rate limit.
func (r *RateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	now := time.Now()
	window := now.Truncate(r.config.Window)
	resetAt := window.Add(r.config.Window)

	redisKey := fmt.Sprintf("carelink:ratelimit:%s:%d", key, window.Unix())

	count, err := r.client.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis incr failed: %w", err)
	}

	// First hit in the window sets the expiry.
	if count == 1 {
		if err := r.client.rdb.Expire(ctx, redisKey, r.config.Window+time.Second).Err(); err != nil {
			return nil, fmt.Errorf("redis expire failed: %w", err)
		}
	}

	remaining := r.config.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if int(count) > r.config.Limit {
		r.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int("limit", r.config.Limit),
		)
		return &RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   resetAt,
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
