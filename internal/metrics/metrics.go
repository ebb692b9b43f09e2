package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/apischeduler/scheduler/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine metrics

	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Time taken to claim and dispatch due schedules in one poll tick.",
		Buckets:   prometheus.DefBuckets,
	})

	DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "dispatch_total",
		Help:      "Total schedules dispatched for execution, by outcome.",
	}, []string{"outcome"})

	InFlightExecutions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "in_flight_executions",
		Help:      "Number of target executions currently in flight.",
	})

	AttemptOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "attempt_outcomes_total",
		Help:      "Total HTTP execution attempts, by error classification.",
	}, []string{"error_type"})

	RunsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "runs_completed_total",
		Help:      "Total runs finished, by final status.",
	}, []string{"status"})

	RunsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "runs_swept_total",
		Help:      "Total stale PENDING runs marked FAILED by the sweep.",
	})

	EngineStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduler",
		Name:      "engine_start_time_seconds",
		Help:      "Unix timestamp when the scheduler engine started.",
	})

	// HTTP transport metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency for the control surface.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests against the control surface.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		TickDuration,
		DispatchTotal,
		InFlightExecutions,
		AttemptOutcomesTotal,
		RunsCompletedTotal,
		RunsSweptTotal,
		EngineStartTime,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer builds the internal metrics server. checker may be nil, in
// which case /readyz is omitted — callers that only need /metrics (e.g.
// tests) can pass nil.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if checker != nil {
		mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
			result := checker.Readiness(r.Context())
			status := http.StatusOK
			if result.Status != "up" {
				status = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(result)
		})
	}
	return &http.Server{Addr: addr, Handler: mux}
}
