package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

type metricsUsecaser interface {
	Snapshot(ctx context.Context) (*usecase.MetricsSnapshot, error)
}

type MetricsHandler struct {
	uc     metricsUsecaser
	logger *slog.Logger
}

func NewMetricsHandler(uc metricsUsecaser, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{uc: uc, logger: logger.With("component", "metrics_handler")}
}

type metricsResponse struct {
	TotalSchedules  int                      `json:"total_schedules"`
	ActiveSchedules int                      `json:"active_schedules"`
	PausedSchedules int                      `json:"paused_schedules"`
	TotalRuns       int                      `json:"total_runs"`
	TotalSuccess    int                      `json:"total_success"`
	TotalFailures   int                      `json:"total_failures"`
	AvgLatencyMS    *float64                 `json:"avg_latency_ms"`
	Schedules       []domain.ScheduleMetrics `json:"schedules"`
}

// Get handles GET /metrics, the domain aggregation endpoint. Distinct
// from the Prometheus /metrics served on the metrics port.
func (h *MetricsHandler) Get(c *gin.Context) {
	snap, err := h.uc.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("metrics snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	schedules := snap.Schedules
	if schedules == nil {
		schedules = []domain.ScheduleMetrics{}
	}

	c.JSON(http.StatusOK, metricsResponse{
		TotalSchedules:  snap.TotalSchedules,
		ActiveSchedules: snap.ActiveSchedules,
		PausedSchedules: snap.PausedSchedules,
		TotalRuns:       snap.TotalRuns,
		TotalSuccess:    snap.TotalSuccess,
		TotalFailures:   snap.TotalFailures,
		AvgLatencyMS:    snap.AvgLatencyMS,
		Schedules:       schedules,
	})
}
