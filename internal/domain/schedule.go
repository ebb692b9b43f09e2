package domain

import (
	"errors"
	"time"
)

var (
	ErrScheduleNotFound       = errors.New("schedule not found")
	ErrScheduleTargetMissing  = errors.New("target for schedule not found")
	ErrScheduleNotActive      = errors.New("schedule is not active")
	ErrScheduleNotPaused      = errors.New("schedule is not paused")
	ErrScheduleWindowDuration = errors.New("window schedule requires a duration_seconds")
)

type ScheduleType string

const (
	ScheduleTypeInterval ScheduleType = "INTERVAL"
	ScheduleTypeWindow   ScheduleType = "WINDOW"
)

type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "ACTIVE"
	ScheduleStatusPaused    ScheduleStatus = "PAUSED"
	ScheduleStatusCompleted ScheduleStatus = "COMPLETED"
)

// Schedule drives periodic execution of a Target. Invariants (mirrored
// from the source specification):
//
//   - IntervalSeconds >= 1.
//   - DurationSeconds is set when Type == ScheduleTypeWindow (an INTERVAL
//     schedule may also carry one; it is stored but not used).
//   - ExpiresAt is set if and only if Type == ScheduleTypeWindow.
//   - A COMPLETED schedule never transitions again.
type Schedule struct {
	ID                     string         `json:"id"`
	TargetID               string         `json:"target_id"`
	Type                   ScheduleType   `json:"schedule_type"`
	IntervalSeconds        int            `json:"interval_seconds"`
	DurationSeconds        *int           `json:"duration_seconds,omitempty"`
	Status                 ScheduleStatus `json:"status"`
	StartedAt              time.Time      `json:"started_at"`
	ExpiresAt              *time.Time     `json:"expires_at,omitempty"`
	LastRunAt              *time.Time     `json:"last_run_at,omitempty"`
	MaxRetries             int            `json:"max_retries"`
	RequestTimeoutSeconds  int            `json:"request_timeout_seconds"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// ScheduleWithTarget pairs a Schedule with its owning Target, the shape
// the engine needs every tick (mirrors a joined row).
type ScheduleWithTarget struct {
	Schedule Schedule
	Target   Target
}

// ScheduleMetrics is one row of the per-schedule aggregation returned by
// GET /metrics.
type ScheduleMetrics struct {
	ScheduleID   string     `json:"schedule_id"`
	TotalRuns    int        `json:"total_runs"`
	SuccessRuns  int        `json:"success_count"`
	FailureRuns  int        `json:"failure_count"`
	AvgLatencyMS *float64   `json:"avg_latency_ms"`
	LastRunAt    *time.Time `json:"last_run_at"`
}

// IsWindowExpired reports whether a WINDOW schedule's duration has
// elapsed as of now.
func (s *Schedule) IsWindowExpired(now time.Time) bool {
	return s.Type == ScheduleTypeWindow && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// IsDue reports whether the schedule should fire at now, given it is
// not currently in flight (in-flight tracking lives in the engine).
func (s *Schedule) IsDue(now time.Time) bool {
	if s.Status != ScheduleStatusActive {
		return false
	}
	if s.LastRunAt == nil {
		return true
	}
	next := s.LastRunAt.Add(time.Duration(s.IntervalSeconds) * time.Second)
	return !now.Before(next)
}
