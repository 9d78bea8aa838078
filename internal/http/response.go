package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrlink/internal/domain"
)

// envelope es el formato comun de todas las respuestas de la API.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, envelope{Success: false, Error: msg})
}

// statusFor traduce los errores de dominio a codigo HTTP y mensaje publico.
// subject nombra el recurso en el mensaje de no encontrado. El ultimo retorno
// es false para errores no esperados.
func statusFor(err error, subject string) (int, string, bool) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusConflict, "Username already exists", true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, subject + " not found", true
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid credentials", true
	case errors.Is(err, domain.ErrNotPublished):
		return http.StatusForbidden, "Profile is not published", true
	case errors.Is(err, domain.ErrInactive):
		return http.StatusForbidden, "Profile is inactive", true
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "Profile was modified concurrently, retry", true
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable", true
	}
	return http.StatusInternalServerError, "Internal server error", false
}

// respondServiceError escribe el error mapeado y registra los inesperados.
func respondServiceError(c *gin.Context, logger *zap.Logger, op, subject string, err error) {
	status, msg, known := statusFor(err, subject)
	if !known || status == http.StatusServiceUnavailable {
		logger.Error(op+" failed", zap.Error(err))
	}
	respondError(c, status, msg)
}
