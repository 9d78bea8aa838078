package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrlink/internal/service"
)

// PublicHandler sirve la vista publica que abre el QR.
type PublicHandler struct {
	logger *zap.Logger
	public *service.PublicService
}

func NewPublicHandler(logger *zap.Logger, public *service.PublicService) *PublicHandler {
	return &PublicHandler{
		logger: logger,
		public: public,
	}
}

// GetProfile maneja GET /api/public/qr/:uuid.
func (h *PublicHandler) GetProfile(c *gin.Context) {
	view, err := h.public.Resolve(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondServiceError(c, h.logger, "resolve public profile", "Profile", err)
		return
	}
	respondOK(c, http.StatusOK, view)
}
