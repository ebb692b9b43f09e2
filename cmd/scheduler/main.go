package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apischeduler/scheduler/config"
	"github.com/apischeduler/scheduler/internal/engine"
	"github.com/apischeduler/scheduler/internal/executor"
	"github.com/apischeduler/scheduler/internal/health"
	"github.com/apischeduler/scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/apischeduler/scheduler/internal/log"
	"github.com/apischeduler/scheduler/internal/metrics"
	"github.com/apischeduler/scheduler/internal/runrecorder"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	metrics.EngineStartTime.Set(float64(time.Now().Unix()))
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	scheduleRepo := postgres.NewScheduleRepository(pool, logger)
	runRepo := postgres.NewRunRepository(pool, logger)

	pollInterval := time.Duration(cfg.SchedulerPollSeconds) * time.Second

	if n, err := engine.SweepStale(ctx, runRepo, pollInterval); err != nil {
		logger.Error("sweep stale runs", "error", err)
	} else if n > 0 {
		logger.Info("swept stale runs", "count", n)
	}

	eng := engine.New(
		scheduleRepo,
		executor.New(logger),
		runrecorder.New(runRepo),
		logger,
		engine.Config{
			PollInterval:            pollInterval,
			MaxConcurrentExecutions: cfg.MaxConcurrentExecutions,
			DefaultRequestTimeout:   time.Duration(cfg.DefaultRequestTimeout) * time.Second,
		},
	)
	eng.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	eng.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("scheduler shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
