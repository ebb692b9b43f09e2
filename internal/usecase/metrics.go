package usecase

import (
	"context"
	"fmt"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/store"
)

type MetricsUsecase struct {
	metrics store.MetricsStore
}

func NewMetricsUsecase(metrics store.MetricsStore) *MetricsUsecase {
	return &MetricsUsecase{metrics: metrics}
}

type MetricsSnapshot struct {
	TotalSchedules  int
	ActiveSchedules int
	PausedSchedules int
	TotalRuns       int
	TotalSuccess    int
	TotalFailures   int
	AvgLatencyMS    *float64
	Schedules       []domain.ScheduleMetrics
}

func (u *MetricsUsecase) Snapshot(ctx context.Context) (*MetricsSnapshot, error) {
	total, active, paused, err := u.metrics.ScheduleCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule counts: %w", err)
	}

	runTotal, runSuccess, runFailure, err := u.metrics.RunCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("run counts: %w", err)
	}

	avgLatency, err := u.metrics.AvgLatencyAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("avg latency: %w", err)
	}

	perSchedule, err := u.metrics.PerScheduleMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("per schedule metrics: %w", err)
	}

	return &MetricsSnapshot{
		TotalSchedules:  total,
		ActiveSchedules: active,
		PausedSchedules: paused,
		TotalRuns:       runTotal,
		TotalSuccess:    runSuccess,
		TotalFailures:   runFailure,
		AvgLatencyMS:    avgLatency,
		Schedules:       perSchedule,
	}, nil
}
