package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

type scheduleUsecaser interface {
	CreateSchedule(ctx context.Context, in usecase.CreateScheduleInput) (*domain.Schedule, error)
	GetSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	ListSchedules(ctx context.Context) ([]*domain.Schedule, error)
	PauseSchedule(ctx context.Context, id string) error
	ResumeSchedule(ctx context.Context, id string) error
	DeleteSchedule(ctx context.Context, id string) error
}

type ScheduleHandler struct {
	uc                    scheduleUsecaser
	logger                *slog.Logger
	defaultRequestTimeout int
}

func NewScheduleHandler(uc scheduleUsecaser, logger *slog.Logger, defaultRequestTimeout int) *ScheduleHandler {
	return &ScheduleHandler{
		uc:                    uc,
		logger:                logger.With("component", "schedule_handler"),
		defaultRequestTimeout: defaultRequestTimeout,
	}
}

type createScheduleRequest struct {
	TargetID              string              `json:"target_id"                binding:"required"`
	ScheduleType          domain.ScheduleType `json:"schedule_type"             binding:"required,oneof=INTERVAL WINDOW"`
	IntervalSeconds       int                 `json:"interval_seconds"          binding:"required,min=1"`
	DurationSeconds       *int                `json:"duration_seconds"`
	MaxRetries            int                 `json:"max_retries"               binding:"omitempty,min=0,max=20"`
	RequestTimeoutSeconds int                 `json:"request_timeout_seconds"   binding:"omitempty,min=1,max=3600"`
}

type scheduleResponse struct {
	ID                    string              `json:"id"`
	TargetID              string              `json:"target_id"`
	ScheduleType          domain.ScheduleType `json:"schedule_type"`
	IntervalSeconds       int                 `json:"interval_seconds"`
	DurationSeconds       *int                `json:"duration_seconds,omitempty"`
	Status                domain.ScheduleStatus `json:"status"`
	StartedAt             time.Time           `json:"started_at"`
	ExpiresAt             *time.Time          `json:"expires_at,omitempty"`
	LastRunAt             *time.Time          `json:"last_run_at,omitempty"`
	MaxRetries            int                 `json:"max_retries"`
	RequestTimeoutSeconds int                 `json:"request_timeout_seconds"`
	CreatedAt             time.Time           `json:"created_at"`
}

func toScheduleResponse(s *domain.Schedule) scheduleResponse {
	return scheduleResponse{
		ID: s.ID, TargetID: s.TargetID, ScheduleType: s.Type,
		IntervalSeconds: s.IntervalSeconds, DurationSeconds: s.DurationSeconds,
		Status: s.Status, StartedAt: s.StartedAt, ExpiresAt: s.ExpiresAt,
		LastRunAt: s.LastRunAt, MaxRetries: s.MaxRetries,
		RequestTimeoutSeconds: s.RequestTimeoutSeconds, CreatedAt: s.CreatedAt,
	}
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timeout := req.RequestTimeoutSeconds
	if timeout == 0 {
		timeout = h.defaultRequestTimeout
	}

	s, err := h.uc.CreateSchedule(c.Request.Context(), usecase.CreateScheduleInput{
		TargetID:              req.TargetID,
		Type:                  req.ScheduleType,
		IntervalSeconds:       req.IntervalSeconds,
		DurationSeconds:       req.DurationSeconds,
		MaxRetries:            req.MaxRetries,
		RequestTimeoutSeconds: timeout,
	})
	if err != nil {
		h.handleError(c, err, "create schedule")
		return
	}

	c.JSON(http.StatusCreated, toScheduleResponse(s))
}

func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.uc.ListSchedules(c.Request.Context())
	if err != nil {
		h.logger.Error("list schedules", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]scheduleResponse, len(schedules))
	for i, s := range schedules {
		items[i] = toScheduleResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"schedules": items})
}

func (h *ScheduleHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	s, err := h.uc.GetSchedule(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "get schedule")
		return
	}

	c.JSON(http.StatusOK, toScheduleResponse(s))
}

func (h *ScheduleHandler) Pause(c *gin.Context) {
	id := c.Param("id")

	if err := h.uc.PauseSchedule(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "pause schedule")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) Resume(c *gin.Context) {
	id := c.Param("id")

	if err := h.uc.ResumeSchedule(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "resume schedule")
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete removes the schedule, cascading to its runs and attempts.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.uc.DeleteSchedule(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "delete schedule")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) handleError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
	case errors.Is(err, domain.ErrScheduleTargetMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": errScheduleTargetMissing})
	case errors.Is(err, domain.ErrScheduleWindowDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": errScheduleWindowDuration})
	case errors.Is(err, domain.ErrScheduleNotActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": errScheduleNotActive})
	case errors.Is(err, domain.ErrScheduleNotPaused):
		c.JSON(http.StatusBadRequest, gin.H{"error": errScheduleNotPaused})
	default:
		h.logger.Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
