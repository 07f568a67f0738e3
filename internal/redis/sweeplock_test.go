package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := &Client{rdb: rdb, logger: zap.NewNop()}

	return client, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestSweepLock_AcquireRelease(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewSweepLock(client, zap.NewNop())
	ctx := context.Background()

	if err := lock.Acquire(ctx); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	lock.Release(ctx)

	if err := lock.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestSweepLock_MutualExclusion(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	first := NewSweepLock(client, zap.NewNop())
	second := NewSweepLock(client, zap.NewNop())

	if err := first.Acquire(ctx); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	// A second invocation, even from another process, must be rejected.
	if err := second.Acquire(ctx); !errors.Is(err, ErrSweepInProgress) {
		t.Fatalf("expected ErrSweepInProgress, got: %v", err)
	}

	first.Release(ctx)

	if err := second.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestSweepLock_InProcessFallback(t *testing.T) {
	// No redis client at all: the in-process guard still excludes.
	lock := NewSweepLock(nil, zap.NewNop())
	ctx := context.Background()

	if err := lock.Acquire(ctx); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if err := lock.Acquire(ctx); !errors.Is(err, ErrSweepInProgress) {
		t.Fatalf("expected ErrSweepInProgress, got: %v", err)
	}

	lock.Release(ctx)

	if err := lock.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewRateLimiter(client, zap.NewNop(), RateLimitConfig{
		Limit:  2,
		Window: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Allow(ctx, "cron")
		if err != nil {
			t.Fatalf("allow %d failed: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	result, err := limiter.Allow(ctx, "cron")
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("third request in window should be rejected")
	}
	if result.Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", result.Remaining)
	}
}
