package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrlink/internal/domain"
	"qrlink/internal/service"
)

// OwnerHandler expone login y edicion del perfil para el propietario.
type OwnerHandler struct {
	logger *zap.Logger
	owner  *service.OwnerService
}

func NewOwnerHandler(logger *zap.Logger, owner *service.OwnerService) *OwnerHandler {
	return &OwnerHandler{
		logger: logger,
		owner:  owner,
	}
}

// Login maneja POST /api/auth/login.
func (h *OwnerHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	res, err := h.owner.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, h.logger, "login", "Profile", err)
		return
	}
	respondOK(c, http.StatusOK, res)
}

// GetProfile maneja GET /api/qr/:uuid.
func (h *OwnerHandler) GetProfile(c *gin.Context) {
	view, err := h.owner.GetOwnerView(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondServiceError(c, h.logger, "get owner profile", "Profile", err)
		return
	}
	respondOK(c, http.StatusOK, view)
}

// UpdateProfile maneja PUT /api/qr/:uuid. El cuerpo lleva las credenciales
// junto a los campos del perfil a modificar.
func (h *OwnerHandler) UpdateProfile(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		h.logger.Warn("invalid update profile request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	username, err := takeString(raw, "username")
	if err != nil {
		respondServiceError(c, h.logger, "update profile", "Profile", err)
		return
	}
	password, err := takeString(raw, "password")
	if err != nil {
		respondServiceError(c, h.logger, "update profile", "Profile", err)
		return
	}
	if username == "" || password == "" {
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	patch, err := domain.ParseProfilePatch(raw)
	if err != nil {
		respondServiceError(c, h.logger, "update profile", "Profile", err)
		return
	}

	profile, err := h.owner.UpdateProfile(c.Request.Context(), c.Param("uuid"), username, password, patch)
	if err != nil {
		respondServiceError(c, h.logger, "update profile", "Profile", err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// takeString extrae y quita una clave de texto del cuerpo crudo.
func takeString(raw map[string]json.RawMessage, key string) (string, error) {
	value, ok := raw[key]
	if !ok {
		return "", nil
	}
	delete(raw, key)
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", domain.ErrValidation, key)
	}
	return s, nil
}
