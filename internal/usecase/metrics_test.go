package usecase_test

import (
	"context"
	"testing"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/usecase"
)

type fakeMetricsStore struct {
	scheduleCounts func(ctx context.Context) (total, active, paused int, err error)
	runCounts      func(ctx context.Context) (total, success, failure int, err error)
	avgLatency     func(ctx context.Context) (*float64, error)
	perSchedule    func(ctx context.Context) ([]domain.ScheduleMetrics, error)
}

func (f *fakeMetricsStore) ScheduleCounts(ctx context.Context) (int, int, int, error) {
	return f.scheduleCounts(ctx)
}
func (f *fakeMetricsStore) RunCounts(ctx context.Context) (int, int, int, error) {
	return f.runCounts(ctx)
}
func (f *fakeMetricsStore) AvgLatencyAll(ctx context.Context) (*float64, error) {
	return f.avgLatency(ctx)
}
func (f *fakeMetricsStore) PerScheduleMetrics(ctx context.Context) ([]domain.ScheduleMetrics, error) {
	return f.perSchedule(ctx)
}

func TestSnapshot_AggregatesAllSources(t *testing.T) {
	latency := 42.5
	store := &fakeMetricsStore{
		scheduleCounts: func(_ context.Context) (int, int, int, error) { return 5, 3, 2, nil },
		runCounts:      func(_ context.Context) (int, int, int, error) { return 10, 8, 2, nil },
		avgLatency:     func(_ context.Context) (*float64, error) { return &latency, nil },
		perSchedule: func(_ context.Context) ([]domain.ScheduleMetrics, error) {
			return []domain.ScheduleMetrics{{ScheduleID: "sch-1", TotalRuns: 10, SuccessRuns: 8, FailureRuns: 2}}, nil
		},
	}
	uc := usecase.NewMetricsUsecase(store)

	snap, err := uc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.TotalSchedules != 5 || snap.ActiveSchedules != 3 || snap.PausedSchedules != 2 {
		t.Errorf("schedule counts wrong: %+v", snap)
	}
	if snap.TotalRuns != 10 || snap.TotalSuccess != 8 || snap.TotalFailures != 2 {
		t.Errorf("run counts wrong: %+v", snap)
	}
	if snap.AvgLatencyMS == nil || *snap.AvgLatencyMS != 42.5 {
		t.Errorf("avg latency wrong: %v", snap.AvgLatencyMS)
	}
	if len(snap.Schedules) != 1 {
		t.Errorf("expected 1 per-schedule row, got %d", len(snap.Schedules))
	}
}

func TestSnapshot_NilAvgLatencyWhenNoSamples(t *testing.T) {
	store := &fakeMetricsStore{
		scheduleCounts: func(_ context.Context) (int, int, int, error) { return 0, 0, 0, nil },
		runCounts:      func(_ context.Context) (int, int, int, error) { return 0, 0, 0, nil },
		avgLatency:     func(_ context.Context) (*float64, error) { return nil, nil },
		perSchedule:    func(_ context.Context) ([]domain.ScheduleMetrics, error) { return nil, nil },
	}
	uc := usecase.NewMetricsUsecase(store)

	snap, err := uc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.AvgLatencyMS != nil {
		t.Errorf("expected nil avg latency, got %v", *snap.AvgLatencyMS)
	}
}
