// Package engine implements the polling scheduler loop: every tick it
// asks the store for due schedules, dispatches one execution goroutine
// per schedule, and lets each goroutine drive its own retry loop against
// the executor independently of the tick loop.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/executor"
	"github.com/apischeduler/scheduler/internal/metrics"
	"github.com/apischeduler/scheduler/internal/runrecorder"
	"github.com/apischeduler/scheduler/internal/store"
)

type Config struct {
	PollInterval            time.Duration
	MaxConcurrentExecutions int
	DefaultRequestTimeout   time.Duration
}

type Engine struct {
	schedules store.ScheduleStore
	exec      *executor.Executor
	recorder  *runrecorder.Recorder
	logger    *slog.Logger
	cfg       Config

	sem chan struct{}

	mu       sync.Mutex
	inFlight map[string]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(schedules store.ScheduleStore, exec *executor.Executor, recorder *runrecorder.Recorder, logger *slog.Logger, cfg Config) *Engine {
	return &Engine{
		schedules: schedules,
		exec:      exec,
		recorder:  recorder,
		logger:    logger.With("component", "engine"),
		cfg:       cfg,
		sem:       make(chan struct{}, cfg.MaxConcurrentExecutions),
		inFlight:  make(map[string]struct{}),
	}
}

// Start launches the poll loop goroutine and returns immediately.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for it to exit. It does not wait
// for in-flight executions — they run to completion independently and
// clean themselves out of the in-flight set, matching the single-writer,
// wall-clock-dependent model this engine is built for.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) runLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.logger.Info("engine started", "poll_interval", e.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine shut down")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	start := time.Now()
	now := start.UTC()

	freeSlots := cap(e.sem) - len(e.sem)
	if freeSlots <= 0 {
		e.logger.Warn("max concurrent executions reached, deferring tick")
		metrics.TickDuration.Observe(time.Since(start).Seconds())
		return
	}

	due, err := e.schedules.Tick(ctx, now, e.inFlightIDs(), freeSlots)
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Error("tick", "error", err)
		return
	}

	for _, sw := range due {
		if !e.tryAcquire(sw.Schedule.ID) {
			// The store already bounds the batch to the free-slot count
			// it was given, so this should not happen in practice; kept
			// as a defensive fallback that still leaves the schedule
			// retriable (last_run_at was advanced, so it fires again
			// after one more interval rather than being lost).
			e.logger.Warn("max concurrent executions reached, deferring", "schedule_id", sw.Schedule.ID)
			metrics.DispatchTotal.WithLabelValues("deferred").Inc()
			continue
		}

		metrics.DispatchTotal.WithLabelValues("dispatched").Inc()
		go e.execute(context.WithoutCancel(ctx), sw)
	}
}

func (e *Engine) tryAcquire(scheduleID string) bool {
	select {
	case e.sem <- struct{}{}:
	default:
		return false
	}

	e.mu.Lock()
	e.inFlight[scheduleID] = struct{}{}
	e.mu.Unlock()
	metrics.InFlightExecutions.Inc()
	return true
}

func (e *Engine) release(scheduleID string) {
	e.mu.Lock()
	delete(e.inFlight, scheduleID)
	e.mu.Unlock()
	<-e.sem
	metrics.InFlightExecutions.Dec()
}

func (e *Engine) inFlightIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.inFlight))
	for id := range e.inFlight {
		ids = append(ids, id)
	}
	return ids
}

// execute opens a Run, drives the retry loop against the Target, and
// closes the Run out, freeing the schedule's in-flight slot on the way
// out regardless of outcome.
func (e *Engine) execute(ctx context.Context, sw domain.ScheduleWithTarget) {
	defer e.release(sw.Schedule.ID)

	logger := e.logger.With("schedule_id", sw.Schedule.ID, "target_id", sw.Target.ID)

	startedAt := time.Now().UTC()
	run, err := e.recorder.CreateRun(ctx, sw.Schedule.ID, startedAt)
	if err != nil {
		logger.Error("create run", "error", err)
		return
	}

	timeout := time.Duration(sw.Schedule.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = e.cfg.DefaultRequestTimeout
	}

	maxAttempts := sw.Schedule.MaxRetries + 1
	status := domain.RunStatusFailed

	for n := 1; n <= maxAttempts; n++ {
		attempt := e.exec.Execute(ctx, executor.ExecuteRequest{
			URL:     sw.Target.URL,
			Method:  sw.Target.Method,
			Headers: sw.Target.Headers,
			Body:    sw.Target.BodyTemplate,
			Timeout: timeout,
		})

		if _, err := e.recorder.AddAttempt(ctx, run.ID, n, attempt); err != nil {
			logger.Error("add attempt", "attempt_number", n, "error", err)
		}
		metrics.AttemptOutcomesTotal.WithLabelValues(string(attempt.ErrorType)).Inc()

		if attempt.Succeeded() {
			status = domain.RunStatusSuccess
			break
		}

		logger.Warn("attempt failed", "attempt_number", n, "max_attempts", maxAttempts, "error_type", attempt.ErrorType)
	}

	if err := e.recorder.CompleteRun(ctx, run.ID, status, time.Now().UTC()); err != nil {
		logger.Error("complete run", "error", err)
	}
	metrics.RunsCompletedTotal.WithLabelValues(string(status)).Inc()

	logger.Info("run finished", "run_id", run.ID, "status", status)
}
