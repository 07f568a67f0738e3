package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	sweepLockKey = "carelink:sweep:lock"

	// leaseTTL bounds how long a crashed sweep can hold the lease.
	leaseTTL = 10 * time.Minute
)

// ErrSweepInProgress indicates another sweep currently holds the lease.
var ErrSweepInProgress = errors.New("a sweep is already in progress")

// SweepLock serializes sweep invocations. With Redis available it uses a
// SET NX lease so concurrent cron calls across replicas exclude each
// other; without Redis it falls back to an in-process guard.
type SweepLock struct {
	client *Client // nil when Redis is unavailable
	logger *zap.Logger
	local  atomic.Bool
}

// NewSweepLock creates a sweep lock. client may be nil.
func NewSweepLock(client *Client, logger *zap.Logger) *SweepLock {
	return &SweepLock{client: client, logger: logger}
}

// Acquire takes the sweep lease. Returns ErrSweepInProgress when another
// invocation holds it; redis transport errors are returned as-is.
func (l *SweepLock) Acquire(ctx context.Context) error {
	if !l.local.CompareAndSwap(false, true) {
		return ErrSweepInProgress
	}

	if l.client == nil {
		return nil
	}

	set, err := l.client.rdb.SetNX(ctx, sweepLockKey, time.Now().Format(time.RFC3339), leaseTTL).Result()
	if err != nil {
		l.local.Store(false)
		return fmt.Errorf("acquire sweep lease: %w", err)
	}
	if !set {
		l.local.Store(false)
		return ErrSweepInProgress
	}

	return nil
}

// Release gives the lease back. Best-effort: a failed delete expires via
// the lease TTL.
func (l *SweepLock) Release(ctx context.Context) {
	l.local.Store(false)

	if l.client == nil {
		return
	}

	if err := l.client.rdb.Del(ctx, sweepLockKey).Err(); err != nil {
		l.logger.Warn("failed to release sweep lease, waiting for TTL expiry",
			zap.Error(err),
		)
	}
}
