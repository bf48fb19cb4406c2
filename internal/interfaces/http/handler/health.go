package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/travelops/backoffice/internal/infrastructure/logger"
	"github.com/travelops/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// HealthHandler serves the liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	db        Pinger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, startTime: time.Now()}
}

// Health answers 200 when the database is reachable and 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Database is unreachable")
		return
	}
	h.Success(c, gin.H{
		"status":   "healthy",
		"version":  h.version,
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
		"database": "up",
	})
}
