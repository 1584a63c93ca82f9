package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/agrigenai/agrigen-backend/pkg/kvstore"
)

type sweeper interface {
	Sweep(idle time.Duration) int
}

// SessionSweepJob evicts in-memory sessions idle for longer than Idle.
type SessionSweepJob struct {
	sessions sweeper
	idle     time.Duration
}

func NewSessionSweepJob(sessions sweeper, idle time.Duration) (*SessionSweepJob, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if idle <= 0 {
		return nil, fmt.Errorf("idle duration must be positive")
	}
	return &SessionSweepJob{sessions: sessions, idle: idle}, nil
}

func (j *SessionSweepJob) Name() string { return "session-sweep" }

func (j *SessionSweepJob) Run(context.Context) (int64, error) {
	return int64(j.sessions.Sweep(j.idle)), nil
}

// EntryPurgeJob deletes expired persisted entries from stores that keep them until read.
type EntryPurgeJob struct {
	store kvstore.Purger
}

func NewEntryPurgeJob(store kvstore.Purger) (*EntryPurgeJob, error) {
	if store == nil {
		return nil, fmt.Errorf("purging store required")
	}
	return &EntryPurgeJob{store: store}, nil
}

func (j *EntryPurgeJob) Name() string { return "entry-purge" }

func (j *EntryPurgeJob) Run(ctx context.Context) (int64, error) {
	return j.store.PurgeExpired(ctx)
}
