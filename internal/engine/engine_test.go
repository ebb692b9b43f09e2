package engine

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/executor"
	"github.com/apischeduler/scheduler/internal/runrecorder"
	"github.com/apischeduler/scheduler/internal/store"
)

type fakeScheduleStore struct {
	tick func(ctx context.Context, now time.Time, excludeIDs []string, limit int) ([]domain.ScheduleWithTarget, error)
}

func (f *fakeScheduleStore) Create(context.Context, *domain.Schedule) (*domain.Schedule, error) { return nil, nil }
func (f *fakeScheduleStore) GetByID(context.Context, string) (*domain.Schedule, error)          { return nil, nil }
func (f *fakeScheduleStore) List(context.Context) ([]*domain.Schedule, error)                   { return nil, nil }
func (f *fakeScheduleStore) LoadWithTarget(context.Context, string) (*domain.Schedule, *domain.Target, error) {
	return nil, nil, nil
}
func (f *fakeScheduleStore) SetStatus(context.Context, string, domain.ScheduleStatus) error { return nil }
func (f *fakeScheduleStore) Delete(context.Context, string) error                           { return nil }
func (f *fakeScheduleStore) Tick(ctx context.Context, now time.Time, excludeIDs []string, limit int) ([]domain.ScheduleWithTarget, error) {
	return f.tick(ctx, now, excludeIDs, limit)
}

type fakeRunStore struct {
	mu        sync.Mutex
	runs      map[string]*domain.Run
	attempts  map[string][]*domain.Attempt
	nextRunID int
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[string]*domain.Run), attempts: make(map[string][]*domain.Attempt)}
}

func (f *fakeRunStore) CreateRun(_ context.Context, scheduleID string, startedAt time.Time) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRunID++
	id := string(rune('a' + f.nextRunID))
	run := &domain.Run{ID: id, ScheduleID: scheduleID, Status: domain.RunStatusPending, StartedAt: startedAt}
	f.runs[id] = run
	return run, nil
}

func (f *fakeRunStore) CompleteRun(_ context.Context, runID string, status domain.RunStatus, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.runs[runID]
	run.Status = status
	run.CompletedAt = &completedAt
	return nil
}

func (f *fakeRunStore) AddAttempt(_ context.Context, a *domain.Attempt) (*domain.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[a.RunID] = append(f.attempts[a.RunID], a)
	return a, nil
}

func (f *fakeRunStore) List(context.Context, store.ListRunsFilter) ([]*domain.Run, error) { return nil, nil }
func (f *fakeRunStore) GetWithAttempts(_ context.Context, id string) (*domain.Run, []*domain.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[id], f.attempts[id], nil
}
func (f *fakeRunStore) SweepStale(context.Context, time.Time) (int, error) { return 0, nil }

func (f *fakeRunStore) snapshot(runID string) (domain.RunStatus, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[runID].Status, len(f.attempts[runID])
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestEngine_ExecuteSucceedsOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	runs := newFakeRunStore()
	e := New(&fakeScheduleStore{}, executor.New(testLogger()), runrecorder.New(runs), testLogger(), Config{
		PollInterval: time.Second, MaxConcurrentExecutions: 10, DefaultRequestTimeout: 5 * time.Second,
	})

	sw := domain.ScheduleWithTarget{
		Schedule: domain.Schedule{ID: "sch-1", MaxRetries: 2, RequestTimeoutSeconds: 5},
		Target:   domain.Target{ID: "tgt-1", URL: srv.URL, Method: http.MethodGet},
	}

	e.tryAcquire(sw.Schedule.ID)
	e.execute(context.Background(), sw)

	var runID string
	for id := range runs.runs {
		runID = id
	}
	status, attemptCount := runs.snapshot(runID)
	if status != domain.RunStatusSuccess {
		t.Errorf("status = %q, want SUCCESS", status)
	}
	if attemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", attemptCount)
	}
}

func TestEngine_ExecuteRetriesUntilMaxThenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	runs := newFakeRunStore()
	e := New(&fakeScheduleStore{}, executor.New(testLogger()), runrecorder.New(runs), testLogger(), Config{
		PollInterval: time.Second, MaxConcurrentExecutions: 10, DefaultRequestTimeout: 5 * time.Second,
	})

	sw := domain.ScheduleWithTarget{
		Schedule: domain.Schedule{ID: "sch-1", MaxRetries: 2, RequestTimeoutSeconds: 5},
		Target:   domain.Target{ID: "tgt-1", URL: srv.URL, Method: http.MethodGet},
	}

	e.tryAcquire(sw.Schedule.ID)
	e.execute(context.Background(), sw)

	var runID string
	for id := range runs.runs {
		runID = id
	}
	status, attemptCount := runs.snapshot(runID)
	if status != domain.RunStatusFailed {
		t.Errorf("status = %q, want FAILED", status)
	}
	if attemptCount != 3 {
		t.Errorf("attempt count = %d, want 3 (maxRetries=2 + initial)", attemptCount)
	}
}

func TestEngine_TryAcquireRespectsConcurrencyCeiling(t *testing.T) {
	e := New(&fakeScheduleStore{}, executor.New(testLogger()), runrecorder.New(newFakeRunStore()), testLogger(), Config{
		MaxConcurrentExecutions: 1,
	})

	if !e.tryAcquire("sch-1") {
		t.Fatal("expected first acquire to succeed")
	}
	if e.tryAcquire("sch-2") {
		t.Fatal("expected second acquire to fail at ceiling 1")
	}
	e.release("sch-1")
	if !e.tryAcquire("sch-2") {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestEngine_InFlightIDsTracksAcquiredSchedules(t *testing.T) {
	e := New(&fakeScheduleStore{}, executor.New(testLogger()), runrecorder.New(newFakeRunStore()), testLogger(), Config{
		MaxConcurrentExecutions: 5,
	})

	e.tryAcquire("sch-1")
	e.tryAcquire("sch-2")

	ids := e.inFlightIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 in-flight IDs, got %d", len(ids))
	}
}

func TestEngine_TickPassesFreeSlotsAsLimit(t *testing.T) {
	var capturedLimit int
	var capturedExclude []string
	schedules := &fakeScheduleStore{
		tick: func(_ context.Context, _ time.Time, excludeIDs []string, limit int) ([]domain.ScheduleWithTarget, error) {
			capturedLimit = limit
			capturedExclude = excludeIDs
			return nil, nil
		},
	}
	e := New(schedules, executor.New(testLogger()), runrecorder.New(newFakeRunStore()), testLogger(), Config{
		MaxConcurrentExecutions: 5,
	})

	e.tryAcquire("sch-already-running")
	e.tick(context.Background())

	if capturedLimit != 4 {
		t.Errorf("limit = %d, want 4 (5 capacity - 1 in flight)", capturedLimit)
	}
	if len(capturedExclude) != 1 || capturedExclude[0] != "sch-already-running" {
		t.Errorf("excludeIDs = %v, want [sch-already-running]", capturedExclude)
	}
}

func TestEngine_TickSkipsStoreCallWhenNoFreeSlots(t *testing.T) {
	called := false
	schedules := &fakeScheduleStore{
		tick: func(context.Context, time.Time, []string, int) ([]domain.ScheduleWithTarget, error) {
			called = true
			return nil, nil
		},
	}
	e := New(schedules, executor.New(testLogger()), runrecorder.New(newFakeRunStore()), testLogger(), Config{
		MaxConcurrentExecutions: 1,
	})

	e.tryAcquire("sch-1")
	e.tick(context.Background())

	if called {
		t.Error("expected Tick not to be called when the engine has no free slots")
	}
}

func TestSweepStale_UsesGraceFloor(t *testing.T) {
	var capturedCutoff time.Time
	runs := &sweepFake{
		fn: func(_ context.Context, cutoff time.Time) (int, error) {
			capturedCutoff = cutoff
			return 3, nil
		},
	}

	before := time.Now().UTC()
	n, err := SweepStale(context.Background(), runs, 1*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	// grace floors at 5s even though poll interval is 1s (2x would be 2s).
	if before.Sub(capturedCutoff) < 5*time.Second-time.Second {
		t.Errorf("cutoff %v too recent for a 5s floor relative to %v", capturedCutoff, before)
	}
}

type sweepFake struct {
	fn func(ctx context.Context, cutoff time.Time) (int, error)
}

func (s *sweepFake) SweepStale(ctx context.Context, cutoff time.Time) (int, error) {
	return s.fn(ctx, cutoff)
}
