// Package store defines the persistence interfaces consumed by the
// usecase and engine layers. Concrete implementations live in
// internal/infrastructure/postgres.
package store

import (
	"context"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
)

type TargetStore interface {
	Create(ctx context.Context, t *domain.Target) (*domain.Target, error)
	GetByID(ctx context.Context, id string) (*domain.Target, error)
	List(ctx context.Context) ([]*domain.Target, error)
	Update(ctx context.Context, t *domain.Target) (*domain.Target, error)
	// Delete removes the target and cascades to its schedules, runs and
	// attempts.
	Delete(ctx context.Context, id string) error
}

type ScheduleStore interface {
	Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error)
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context) ([]*domain.Schedule, error)
	LoadWithTarget(ctx context.Context, id string) (*domain.Schedule, *domain.Target, error)
	SetStatus(ctx context.Context, id string, status domain.ScheduleStatus) error
	// Delete removes the schedule and cascades to its runs and attempts.
	Delete(ctx context.Context, id string) error

	// Tick atomically loads active schedules with their targets, expires
	// windows that have elapsed, and returns up to limit schedules due to
	// fire as of now. excludeIDs are schedules currently in flight in the
	// engine's in-flight set and must not be returned even if otherwise
	// due. last_run_at is advanced only for the schedules returned, so a
	// due schedule that doesn't fit within limit stays due next tick.
	Tick(ctx context.Context, now time.Time, excludeIDs []string, limit int) ([]domain.ScheduleWithTarget, error)
}

type ListRunsFilter struct {
	ScheduleID *string
	Status     *domain.RunStatus
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

type RunStore interface {
	CreateRun(ctx context.Context, scheduleID string, startedAt time.Time) (*domain.Run, error)
	CompleteRun(ctx context.Context, runID string, status domain.RunStatus, completedAt time.Time) error
	AddAttempt(ctx context.Context, a *domain.Attempt) (*domain.Attempt, error)
	List(ctx context.Context, f ListRunsFilter) ([]*domain.Run, error)
	GetWithAttempts(ctx context.Context, id string) (*domain.Run, []*domain.Attempt, error)

	// SweepStale marks PENDING runs started before cutoff as FAILED,
	// returning the number of runs swept. Used once at engine startup.
	SweepStale(ctx context.Context, cutoff time.Time) (int, error)
}

type MetricsStore interface {
	ScheduleCounts(ctx context.Context) (total, active, paused int, err error)
	RunCounts(ctx context.Context) (total, success, failure int, err error)
	AvgLatencyAll(ctx context.Context) (*float64, error)
	PerScheduleMetrics(ctx context.Context) ([]domain.ScheduleMetrics, error)
}
