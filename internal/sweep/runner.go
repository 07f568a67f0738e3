package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nattapongw/carelink/internal/metrics"
)

// Locker serializes sweep invocations.
type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context)
}

// Runner is the single entry point for one sweep invocation: take the
// lease, collect, dispatch, release. Collector errors fail the run;
// per-channel delivery errors never do.
type Runner struct {
	collector  *Collector
	dispatcher *Dispatcher
	lock       Locker
	logger     *zap.Logger
}

func NewRunner(collector *Collector, dispatcher *Dispatcher, lock Locker, logger *zap.Logger) *Runner {
	return &Runner{
		collector:  collector,
		dispatcher: dispatcher,
		lock:       lock,
		logger:     logger,
	}
}

// Run executes one sweep for the server's local calendar day.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	return r.RunAt(ctx, time.Now())
}

// RunAt executes one sweep for the given day.
func (r *Runner) RunAt(ctx context.Context, today time.Time) (*Result, error) {
	if err := r.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.lock.Release(ctx)

	start := time.Now()

	events, err := r.collector.Collect(ctx, today)
	if err != nil {
		metrics.RecordSweep("error", time.Since(start))
		return nil, err
	}

	for _, ev := range events {
		metrics.RecordEventCollected(ev.Type)
	}

	result := r.dispatcher.Dispatch(ctx, events, today)

	metrics.RecordSweep("ok", time.Since(start))

	r.logger.Info("sweep completed",
		zap.Int("processed", result.Processed),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}
