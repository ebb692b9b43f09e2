// Package runrecorder wraps a store.RunStore with the small amount of
// bookkeeping the engine needs when opening, appending to, and closing
// out a Run — attempt numbering in particular.
package runrecorder

import (
	"context"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/store"
)

type Recorder struct {
	runs store.RunStore
}

func New(runs store.RunStore) *Recorder {
	return &Recorder{runs: runs}
}

func (r *Recorder) CreateRun(ctx context.Context, scheduleID string, startedAt time.Time) (*domain.Run, error) {
	return r.runs.CreateRun(ctx, scheduleID, startedAt)
}

// AddAttempt stamps runID and attemptNumber onto attempt and persists it.
func (r *Recorder) AddAttempt(ctx context.Context, runID string, attemptNumber int, attempt domain.Attempt) (*domain.Attempt, error) {
	attempt.RunID = runID
	attempt.AttemptNumber = attemptNumber
	return r.runs.AddAttempt(ctx, &attempt)
}

func (r *Recorder) CompleteRun(ctx context.Context, runID string, status domain.RunStatus, completedAt time.Time) error {
	return r.runs.CompleteRun(ctx, runID, status, completedAt)
}
