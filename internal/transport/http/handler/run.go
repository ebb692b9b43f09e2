package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/store"
	"github.com/gin-gonic/gin"
)

type runUsecaser interface {
	ListRuns(ctx context.Context, f store.ListRunsFilter) ([]*domain.Run, error)
	GetRunWithAttempts(ctx context.Context, id string) (*domain.Run, []*domain.Attempt, error)
}

type RunHandler struct {
	uc     runUsecaser
	logger *slog.Logger
}

func NewRunHandler(uc runUsecaser, logger *slog.Logger) *RunHandler {
	return &RunHandler{uc: uc, logger: logger.With("component", "run_handler")}
}

type runResponse struct {
	ID          string     `json:"id"`
	ScheduleID  string     `json:"schedule_id"`
	Status      domain.RunStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toRunResponse(r *domain.Run) runResponse {
	return runResponse{
		ID: r.ID, ScheduleID: r.ScheduleID, Status: r.Status,
		StartedAt: r.StartedAt, CompletedAt: r.CompletedAt, CreatedAt: r.CreatedAt,
	}
}

type attemptResponse struct {
	ID                string           `json:"id"`
	AttemptNumber     int              `json:"attempt_number"`
	StatusCode        *int             `json:"status_code,omitempty"`
	LatencyMS         float64          `json:"latency_ms"`
	ResponseSizeBytes *int64           `json:"response_size_bytes,omitempty"`
	ErrorType         domain.ErrorType `json:"error_type"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	StartedAt         time.Time        `json:"started_at"`
	CompletedAt       time.Time        `json:"completed_at"`
}

func toAttemptResponse(a *domain.Attempt) attemptResponse {
	return attemptResponse{
		ID: a.ID, AttemptNumber: a.AttemptNumber, StatusCode: a.StatusCode,
		LatencyMS: a.LatencyMS, ResponseSizeBytes: a.ResponseSizeBytes,
		ErrorType: a.ErrorType, ErrorMessage: a.ErrorMessage,
		StartedAt: a.StartedAt, CompletedAt: a.CompletedAt,
	}
}

// List handles GET /runs?schedule_id=&status=&start_time=&end_time=&limit=&offset=
func (h *RunHandler) List(c *gin.Context) {
	f := store.ListRunsFilter{Limit: 100}

	if v := c.Query("schedule_id"); v != "" {
		f.ScheduleID = &v
	}
	if v := c.Query("status"); v != "" {
		status := domain.RunStatus(v)
		f.Status = &status
	}
	if v := c.Query("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be RFC3339"})
			return
		}
		f.StartTime = &t
	}
	if v := c.Query("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be RFC3339"})
			return
		}
		f.EndTime = &t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		f.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be >= 0"})
			return
		}
		f.Offset = n
	}

	runs, err := h.uc.ListRuns(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]runResponse, len(runs))
	for i, r := range runs {
		items[i] = toRunResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": items})
}

func (h *RunHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	run, attempts, err := h.uc.GetRunWithAttempts(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errRunNotFound})
			return
		}
		h.logger.Error("get run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	attemptItems := make([]attemptResponse, len(attempts))
	for i, a := range attempts {
		attemptItems[i] = toAttemptResponse(a)
	}

	resp := toRunResponse(run)
	c.JSON(http.StatusOK, gin.H{
		"run":      resp,
		"attempts": attemptItems,
	})
}
