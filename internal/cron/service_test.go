package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

type testJob struct {
	name    string
	err     error
	removed int64
	runs    int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) (int64, error) {
	t.runs++
	return t.removed, t.err
}

type heldLock struct{ acquireCalls int }

func (h *heldLock) Acquire(context.Context) (bool, error) { h.acquireCalls++; return false, nil }
func (h *heldLock) Release(context.Context) error         { return nil }

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success", removed: 2}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(success, nil, failure),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected every job to run once, got success=%d fail=%d", success.runs, failure.runs)
	}
	if service.interval != defaultInterval {
		t.Fatalf("expected default interval, got %s", service.interval)
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	lock := &heldLock{}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if lock.acquireCalls != 1 || job.runs != 0 {
		t.Fatalf("expected job skipped, runs=%d", job.runs)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(job), Interval: time.Hour})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the initial cycle to run, got %d", job.runs)
	}
}

func TestRegistryReturnsCopy(t *testing.T) {
	registry := NewRegistry(&testJob{name: "a"}, &testJob{name: "b"})
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0].Name() != "a" || jobs[1].Name() != "b" {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&testJob{name: "session-sweep"})
	if err := registry.Register(&testJob{name: "session-sweep"}); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
	if err := registry.Register(nil); err != nil {
		t.Fatalf("nil jobs are ignored, got %v", err)
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "session-sweep" {
		t.Fatalf("unexpected names %v", names)
	}
}

type fakeSweeper struct{ idle time.Duration }

func (f *fakeSweeper) Sweep(idle time.Duration) int {
	f.idle = idle
	return 4
}

func TestSessionSweepJob(t *testing.T) {
	sweeper := &fakeSweeper{}
	job, err := NewSessionSweepJob(sweeper, 30*time.Minute)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	removed, err := job.Run(context.Background())
	if err != nil || removed != 4 || sweeper.idle != 30*time.Minute {
		t.Fatalf("unexpected sweep removed=%d err=%v idle=%s", removed, err, sweeper.idle)
	}
	if _, err := NewSessionSweepJob(sweeper, 0); err == nil {
		t.Fatalf("expected zero idle to be rejected")
	}
}

func TestEntryPurgeJobDeletesExpired(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory(time.Nanosecond)
	if err := store.Set(ctx, "s1", kvstore.EntryCart, []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(time.Millisecond)

	job, err := NewEntryPurgeJob(store)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	removed, err := job.Run(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("expected one purged entry, removed=%d err=%v", removed, err)
	}
}
