package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeLock struct {
	err      error
	acquired int
	released int
}

func (f *fakeLock) Acquire(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.acquired++
	return nil
}

func (f *fakeLock) Release(ctx context.Context) { f.released++ }

func TestRunner_ReleasesLockAfterRun(t *testing.T) {
	store := &mockStore{}
	collector := NewCollector(store, 2, zap.NewNop())
	dispatcher := NewDispatcher(newMockAlertStore(), &fakeEmailChain{}, &fakeSMS{}, false, zap.NewNop())
	lock := &fakeLock{}
	runner := NewRunner(collector, dispatcher, lock, zap.NewNop())

	if _, err := runner.RunAt(context.Background(), date(2026, time.March, 15)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lock.acquired != 1 || lock.released != 1 {
		t.Errorf("expected lock acquired and released once, got %d/%d", lock.acquired, lock.released)
	}
}

func TestRunner_LockedSweepRejected(t *testing.T) {
	errBusy := errors.New("a sweep is already in progress")
	lock := &fakeLock{err: errBusy}
	runner := NewRunner(nil, nil, lock, zap.NewNop())

	_, err := runner.RunAt(context.Background(), time.Now())
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected busy error, got: %v", err)
	}
}

func TestRunner_CollectorErrorReleasesLock(t *testing.T) {
	store := &mockStore{failProfiles: true}
	collector := NewCollector(store, 2, zap.NewNop())
	lock := &fakeLock{}
	runner := NewRunner(collector, nil, lock, zap.NewNop())

	_, err := runner.RunAt(context.Background(), time.Now())
	if !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got: %v", err)
	}
	if lock.released != 1 {
		t.Error("lock must be released even when the collector fails")
	}
}
