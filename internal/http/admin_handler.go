package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrlink/internal/service"
)

// AdminHandler expone las operaciones del panel de administracion.
type AdminHandler struct {
	logger *zap.Logger
	admin  *service.AdminService
}

func NewAdminHandler(logger *zap.Logger, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{
		logger: logger,
		admin:  admin,
	}
}

// CreateUser maneja POST /api/admin/users.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create user request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "Username, password and a valid email are required")
		return
	}

	created, err := h.admin.CreateUser(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		respondServiceError(c, h.logger, "create user", "User", err)
		return
	}
	respondOK(c, http.StatusCreated, created)
}

// ListUsers maneja GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	rows, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, "list users", "User", err)
		return
	}
	respondOK(c, http.StatusOK, rows)
}

// ToggleStatus maneja PUT /api/admin/users/:id/toggle-status.
func (h *AdminHandler) ToggleStatus(c *gin.Context) {
	user, err := h.admin.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, "toggle status", "User", err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// DeleteUser maneja DELETE /api/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.admin.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, h.logger, "delete user", "User", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

// GetQR maneja GET /api/admin/qr/:uuid.
func (h *AdminHandler) GetQR(c *gin.Context) {
	asset, err := h.admin.GetQR(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondServiceError(c, h.logger, "get qr", "Profile", err)
		return
	}
	respondOK(c, http.StatusOK, asset)
}

// RegenerateQR maneja POST /api/admin/qr/:uuid/regenerate.
func (h *AdminHandler) RegenerateQR(c *gin.Context) {
	asset, err := h.admin.RegenerateQR(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondServiceError(c, h.logger, "regenerate qr", "Profile", err)
		return
	}
	respondOK(c, http.StatusOK, asset)
}
