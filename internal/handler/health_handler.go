package handler

import (
	"net/http"

	"fleetshop/pkg/logger"
	"fleetshop/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler creates a health handler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck handles the health check endpoint
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	status, dbStatus, code := "healthy", "up", http.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		logger.FromContext(c).Error("Database health check failed", zap.Error(err))
		status, dbStatus, code = "unhealthy", "down", http.StatusServiceUnavailable
	}

	return c.JSON(code, echo.Map{
		"status":   status,
		"service":  "fleetshop",
		"database": dbStatus,
	})
}

// MetricsHandler exposes the Prometheus registry
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
