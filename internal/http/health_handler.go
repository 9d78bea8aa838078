package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reporta si el almacenamiento responde.
type HealthHandler struct {
	logger *zap.Logger
	store  pinger
}

func NewHealthHandler(logger *zap.Logger, store pinger) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		store:  store,
	}
}

// Health maneja GET /healthz.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"status": "ok"})
}
