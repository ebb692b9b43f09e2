package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/apischeduler/scheduler/internal/domain"
	"github.com/apischeduler/scheduler/internal/usecase"
	"github.com/gin-gonic/gin"
)

// targetUsecaser is the subset of TargetUsecase the handler needs,
// defined at point of use so tests can inject a fake.
type targetUsecaser interface {
	CreateTarget(ctx context.Context, in usecase.CreateTargetInput) (*domain.Target, error)
	GetTarget(ctx context.Context, id string) (*domain.Target, error)
	ListTargets(ctx context.Context) ([]*domain.Target, error)
	UpdateTarget(ctx context.Context, in usecase.UpdateTargetInput) (*domain.Target, error)
	DeleteTarget(ctx context.Context, id string) error
}

type TargetHandler struct {
	uc     targetUsecaser
	logger *slog.Logger
}

func NewTargetHandler(uc targetUsecaser, logger *slog.Logger) *TargetHandler {
	return &TargetHandler{uc: uc, logger: logger.With("component", "target_handler")}
}

type targetRequest struct {
	Name    string            `json:"name"    binding:"required,max=256"`
	URL     string            `json:"url"     binding:"required,max=2048"`
	Method  string            `json:"method"  binding:"omitempty,max=16"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body_template"`
}

type targetResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyTemplate json.RawMessage   `json:"body_template,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func toTargetResponse(t *domain.Target) targetResponse {
	return targetResponse{
		ID: t.ID, Name: t.Name, URL: t.URL, Method: t.Method,
		Headers: t.Headers, BodyTemplate: t.BodyTemplate,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func (h *TargetHandler) Create(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	method := req.Method
	if method == "" {
		method = "POST"
	}

	t, err := h.uc.CreateTarget(c.Request.Context(), usecase.CreateTargetInput{
		Name: req.Name, URL: req.URL, Method: method, Headers: req.Headers, Body: req.Body,
	})
	if err != nil {
		h.handleError(c, err, "create target")
		return
	}

	c.JSON(http.StatusCreated, toTargetResponse(t))
}

func (h *TargetHandler) List(c *gin.Context) {
	targets, err := h.uc.ListTargets(c.Request.Context())
	if err != nil {
		h.logger.Error("list targets", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]targetResponse, len(targets))
	for i, t := range targets {
		items[i] = toTargetResponse(t)
	}
	c.JSON(http.StatusOK, gin.H{"targets": items})
}

func (h *TargetHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	t, err := h.uc.GetTarget(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err, "get target")
		return
	}

	c.JSON(http.StatusOK, toTargetResponse(t))
}

func (h *TargetHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.uc.UpdateTarget(c.Request.Context(), usecase.UpdateTargetInput{
		ID: id, Name: req.Name, URL: req.URL, Method: req.Method, Headers: req.Headers, Body: req.Body,
	})
	if err != nil {
		h.handleError(c, err, "update target")
		return
	}

	c.JSON(http.StatusOK, toTargetResponse(t))
}

// Delete removes the target, cascading to its schedules, runs and attempts.
func (h *TargetHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.uc.DeleteTarget(c.Request.Context(), id); err != nil {
		h.handleError(c, err, "delete target")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TargetHandler) handleError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrTargetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errTargetNotFound})
	case errors.Is(err, domain.ErrTargetInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": errTargetInvalidURL})
	case errors.Is(err, domain.ErrTargetInvalidMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": errTargetInvalidMethod})
	default:
		h.logger.Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
