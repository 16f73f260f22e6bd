package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gmalla/backend/internal/gtask"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// @Summary Login against the user directory
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]any
// @Router /api/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}
	info, err := h.Users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, gtask.ErrUnauthorized) {
			writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", nil)
			return
		}
		h.Logger.Error().Err(err).Str("username", req.Username).Msg("login failed")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "User directory unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user_data": info.User, "message": "Login exitoso"})
}

// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	h.Users.Logout()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Sesión cerrada correctamente"})
}

// AuthStatus never exposes the session token.
func (h *Handler) AuthStatus(c *gin.Context) {
	info := h.Users.Status()
	c.JSON(http.StatusOK, gin.H{"success": true, "authenticated": info.Authenticated, "user_data": info.User})
}
