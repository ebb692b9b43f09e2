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
	"github.com/apischeduler/scheduler/internal/health"
	"github.com/apischeduler/scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/apischeduler/scheduler/internal/log"
	"github.com/apischeduler/scheduler/internal/metrics"
	httptransport "github.com/apischeduler/scheduler/internal/transport/http"
	"github.com/apischeduler/scheduler/internal/transport/http/handler"
	"github.com/apischeduler/scheduler/internal/usecase"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	targetRepo := postgres.NewTargetRepository(pool, logger)
	scheduleRepo := postgres.NewScheduleRepository(pool, logger)
	runRepo := postgres.NewRunRepository(pool, logger)
	metricsRepo := postgres.NewMetricsRepository(pool, logger)

	targetUsecase := usecase.NewTargetUsecase(targetRepo)
	scheduleUsecase := usecase.NewScheduleUsecase(scheduleRepo, targetRepo)
	runUsecase := usecase.NewRunUsecase(runRepo)
	metricsUsecase := usecase.NewMetricsUsecase(metricsRepo)

	handlers := httptransport.Handlers{
		Targets:   handler.NewTargetHandler(targetUsecase, logger),
		Schedules: handler.NewScheduleHandler(scheduleUsecase, logger, cfg.DefaultRequestTimeout),
		Runs:      handler.NewRunHandler(runUsecase, logger),
		Metrics:   handler.NewMetricsHandler(metricsUsecase, logger),
	}

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(handlers, checker, logger),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
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
