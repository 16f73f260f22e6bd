package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gmalla/backend/internal/utils"
)

// @Summary List directory users sorted by name
// @Tags usuarios
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/usuarios [get]
func (h *Handler) UsersList(c *gin.Context) {
	users, err := h.Users.ListUsers(c.Request.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("user list failed")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to fetch users", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "usuarios": users, "count": len(users)})
}

type calendarDay struct {
	Date    string       `json:"fecha"`
	Tickets []ticketView `json:"incidencias"`
}

// @Summary Calendar of one user between two dates
// @Tags calendario
// @Produce json
// @Param usuario_id query string true "user id"
// @Param fecha_inicio query string true "YYYY-MM-DD"
// @Param fecha_fin query string true "YYYY-MM-DD"
// @Success 200 {object} map[string]any
// @Router /api/calendario [get]
func (h *Handler) UserCalendar(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("usuario_id"))
	fromStr, toStr := c.Query("fecha_inicio"), c.Query("fecha_fin")
	if userID == "" || fromStr == "" || toStr == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "usuario_id, fecha_inicio and fecha_fin are required", nil)
		return
	}
	from, err := utils.ParseDate(fromStr)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fecha_inicio", err.Error())
		return
	}
	to, err := utils.ParseDate(toStr)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fecha_fin", err.Error())
		return
	}
	if to.Before(from) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "fecha_fin before fecha_inicio", nil)
		return
	}

	days := h.Calendar.LoadForUser(userID, from, to)
	out := make([]calendarDay, 0, len(days))
	for _, d := range days {
		out = append(out, calendarDay{Date: d.Date, Tickets: viewsOf(d.Tickets)})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "calendario": out})
}

// @Summary Assignment counts per user, or per day for one user when a range is given
// @Tags calendario
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/resumen [get]
func (h *Handler) Summary(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("usuario_id"))
	if userID == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "resumen": h.Calendar.Summary()})
		return
	}
	from, err := utils.ParseDate(c.Query("fecha_inicio"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fecha_inicio", err.Error())
		return
	}
	to, err := utils.ParseDate(c.Query("fecha_fin"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fecha_fin", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "usuario_id": userID, "carga": h.Calendar.LoadCounts(userID, from, to)})
}
