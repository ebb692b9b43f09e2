package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/apischeduler/scheduler/internal/health"
	"github.com/apischeduler/scheduler/internal/transport/http/handler"
	"github.com/apischeduler/scheduler/internal/transport/http/middleware"
	sloggin "github.com/samber/slog-gin"

	"github.com/gin-gonic/gin"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Targets   *handler.TargetHandler
	Schedules *handler.ScheduleHandler
	Runs      *handler.RunHandler
	Metrics   *handler.MetricsHandler
}

func NewRouter(h Handlers, checker *health.Checker, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(middleware.Metrics())
	r.Use(sloggin.New(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Liveness(c.Request.Context()))
	})
	r.GET("/readyz", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})

	targets := r.Group("/targets")
	targets.POST("", h.Targets.Create)
	targets.GET("", h.Targets.List)
	targets.GET("/:id", h.Targets.GetByID)
	targets.PUT("/:id", h.Targets.Update)
	targets.DELETE("/:id", h.Targets.Delete)

	schedules := r.Group("/schedules")
	schedules.POST("", h.Schedules.Create)
	schedules.GET("", h.Schedules.List)
	schedules.GET("/:id", h.Schedules.GetByID)
	schedules.POST("/:id/pause", h.Schedules.Pause)
	schedules.POST("/:id/resume", h.Schedules.Resume)
	schedules.DELETE("/:id", h.Schedules.Delete)

	runs := r.Group("/runs")
	runs.GET("", h.Runs.List)
	runs.GET("/:id", h.Runs.GetByID)

	r.GET("/metrics", h.Metrics.Get)

	return r
}
