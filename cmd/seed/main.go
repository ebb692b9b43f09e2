// seed inserts a handful of targets and schedules into the local dev
// database so the engine has something to fire against immediately.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/infrastructure/postgres"
	"github.com/apischeduler/scheduler/internal/usecase"
)

type targetSpec struct {
	name   string
	url    string
	method string
}

var targets = []targetSpec{
	// Happy path — 2xx from httpbin every time
	{"httpbin-post-ok", "https://httpbin.org/post", "POST"},
	{"httpbin-get-ok", "https://httpbin.org/get", "GET"},

	// Always fails — exercises HTTP_5XX classification and retries
	{"httpbin-500", "https://httpbin.org/status/500", "POST"},

	// Always fails — exercises HTTP_4XX classification, no retry benefit
	{"httpbin-404", "https://httpbin.org/status/404", "GET"},

	// Exercises TIMEOUT classification against a short request timeout
	{"httpbin-slow", "https://httpbin.org/delay/10", "GET"},
}

type scheduleSpec struct {
	targetName      string
	intervalSeconds int
	maxRetries      int
	timeoutSeconds  int
}

var schedules = []scheduleSpec{
	{"httpbin-post-ok", 60, 2, 10},
	{"httpbin-get-ok", 30, 2, 10},
	{"httpbin-500", 60, 3, 10},
	{"httpbin-404", 120, 0, 10},
	{"httpbin-slow", 60, 1, 3},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	targetRepo := postgres.NewTargetRepository(pool, logger)
	scheduleRepo := postgres.NewScheduleRepository(pool, logger)

	targetUsecase := usecase.NewTargetUsecase(targetRepo)
	scheduleUsecase := usecase.NewScheduleUsecase(scheduleRepo, targetRepo)

	byName := make(map[string]*domain.Target, len(targets))
	for _, spec := range targets {
		t, err := targetUsecase.CreateTarget(ctx, usecase.CreateTargetInput{
			Name:   spec.name,
			URL:    spec.url,
			Method: spec.method,
		})
		if err != nil {
			log.Fatalf("create target %s: %v", spec.name, err)
		}
		byName[spec.name] = t
	}

	var created int
	for _, spec := range schedules {
		target, ok := byName[spec.targetName]
		if !ok {
			log.Fatalf("schedule references unknown target %s", spec.targetName)
		}

		s, err := scheduleUsecase.CreateSchedule(ctx, usecase.CreateScheduleInput{
			TargetID:              target.ID,
			Type:                  domain.ScheduleTypeInterval,
			IntervalSeconds:       spec.intervalSeconds,
			MaxRetries:            spec.maxRetries,
			RequestTimeoutSeconds: spec.timeoutSeconds,
		})
		if err != nil {
			log.Fatalf("create schedule for %s: %v", spec.targetName, err)
		}
		created++
		fmt.Printf("  schedule %s  ->  target %s (%s %s)  every %ds\n",
			s.ID, target.ID, target.Method, target.URL, spec.intervalSeconds)
	}

	fmt.Println()
	fmt.Printf("Seed complete: %d targets, %d schedules\n", len(byName), created)
	fmt.Println()
	fmt.Println("How to inspect:")
	fmt.Println()
	fmt.Println("  curl -s http://localhost:8080/schedules | jq")
	fmt.Println("  curl -s http://localhost:8080/runs | jq")
	fmt.Println("  curl -s http://localhost:8080/metrics | jq")
}
