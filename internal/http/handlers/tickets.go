package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gmalla/backend/internal/erp"
	"github.com/gmalla/backend/internal/gtask"
	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/utils"
)

// @Summary List tickets
// @Tags incidencias
// @Produce json
// @Param estado query string false "state filter"
// @Param recurso query string false "resource filter"
// @Success 200 {object} map[string]any
// @Router /api/incidencias [get]
func (h *Handler) TicketsList(c *gin.Context) {
	tickets, err := h.Tickets.FetchTickets(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		h.Logger.Error().Err(err).Msg("ticket list failed")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to fetch tickets", err.Error())
		return
	}
	if h.Calendar != nil {
		h.Calendar.Seed(tickets)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "incidencias": viewsOf(tickets), "count": len(tickets)})
}

// @Summary Ticket detail from the ERP
// @Tags incidencias
// @Produce json
// @Param id path string true "GTask id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/detalle-incidencia/{id} [get]
func (h *Handler) TicketDetail(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	detail, err := h.Tickets.FetchTicketDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, erp.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket detail not found", nil)
			return
		}
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to fetch ticket detail", err.Error())
		return
	}
	if len(detail) == 0 {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Ticket detail not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "detalle": detail})
}

// lookup finds a ticket in the calendar first, then in the ERP.
func (h *Handler) lookup(c *gin.Context, key string) (models.Ticket, bool) {
	if h.Calendar != nil {
		if t, ok := h.Calendar.Find(key); ok {
			return t, true
		}
	}
	t, err := h.Tickets.FindTicket(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, erp.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Incidencia "+key+" no encontrada", nil)
			return models.Ticket{}, false
		}
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to fetch tickets", err.Error())
		return models.Ticket{}, false
	}
	return t, true
}

// sync pushes t to the ERP. Failures are logged and reported, never rolled back.
func (h *Handler) sync(c *gin.Context, t models.Ticket) bool {
	if err := h.Tickets.UpdateTicket(c.Request.Context(), t); err != nil {
		h.Logger.Warn().Err(err).Str("ticket", t.No).Msg("ticket sync failed")
		return false
	}
	return true
}

type MoveRequest struct {
	No        string `json:"no" validate:"required"`
	NewUserID string `json:"nuevo_usuario_id"`
	NewDate   string `json:"nueva_fecha" validate:"omitempty,datetime=2006-01-02"`
}

// @Summary Move a ticket to another user and/or date
// @Tags calendario
// @Accept json
// @Produce json
// @Param body body MoveRequest true "move"
// @Success 200 {object} map[string]any
// @Router /api/mover-incidencia [post]
func (h *Handler) MoveTicket(c *gin.Context) {
	var req MoveRequest
	if !h.bind(c, &req) {
		return
	}
	if req.NewUserID == "" && req.NewDate == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Nothing to change", "nuevo_usuario_id or nueva_fecha required")
		return
	}
	t, ok := h.lookup(c, req.No)
	if !ok {
		return
	}

	if req.NewUserID != "" {
		if moved, ok := h.Calendar.MoveUser(t.Key(), req.NewUserID); ok {
			t = moved
		} else {
			t = h.Calendar.Assign(t, req.NewUserID)
		}
	}
	if req.NewDate != "" {
		d, _ := utils.ParseDate(req.NewDate)
		if moved, ok := h.Calendar.MoveDate(t.Key(), d); ok {
			t = moved
		} else {
			t.Date = &d
		}
	}

	synced := h.sync(c, t)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sincronizado": synced,
		"message":      "Incidencia " + t.No + " movida correctamente",
		"incidencia":   viewOf(t),
	})
}

type UpdateRequest struct {
	GTaskID     string  `json:"id_gtask" validate:"required"`
	Description *string `json:"descripcion"`
	DateTime    string  `json:"fecha_hora"`
}

var dateTimeLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", time.RFC3339}

func parseLocalDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// @Summary Update description and datetime of a ticket
// @Tags incidencias
// @Accept json
// @Produce json
// @Param body body UpdateRequest true "changes"
// @Success 200 {object} map[string]any
// @Router /api/actualizar-incidencia [post]
func (h *Handler) UpdateTicket(c *gin.Context) {
	var req UpdateRequest
	if !h.bind(c, &req) {
		return
	}
	var dt time.Time
	if req.DateTime != "" {
		parsed, ok := parseLocalDateTime(req.DateTime)
		if !ok {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid fecha_hora", req.DateTime)
			return
		}
		dt = parsed
	}

	t, err := h.Tickets.FindTicket(c.Request.Context(), req.GTaskID)
	if err != nil {
		if errors.Is(err, erp.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Incidencia con ID "+req.GTaskID+" no encontrada", nil)
			return
		}
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to fetch tickets", err.Error())
		return
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.DateTime != "" {
		d := utils.Day(dt)
		t.Date = &d
		t.DateTime = &dt
	}

	if err := h.Tickets.UpdateTicket(c.Request.Context(), t); err != nil {
		h.Logger.Error().Err(err).Str("ticket", t.No).Msg("ticket update failed")
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "No se pudo actualizar la incidencia", err.Error())
		return
	}
	if h.Calendar != nil && t.Assigned() {
		h.Calendar.Assign(t, t.UserID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Incidencia " + t.No + " actualizada correctamente"})
}

type AssignRequest struct {
	No     string `json:"no" validate:"required"`
	UserID string `json:"usuario_id" validate:"required"`
}

// @Summary Assign a ticket to a user
// @Tags calendario
// @Accept json
// @Produce json
// @Param body body AssignRequest true "assignment"
// @Success 200 {object} map[string]any
// @Router /api/asignar-incidencia [post]
func (h *Handler) AssignTicket(c *gin.Context) {
	var req AssignRequest
	if !h.bind(c, &req) {
		return
	}
	if _, err := h.Users.UserByID(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, gtask.ErrUserNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Usuario "+req.UserID+" no encontrado", nil)
			return
		}
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to fetch users", err.Error())
		return
	}
	t, ok := h.lookup(c, req.No)
	if !ok {
		return
	}
	t = h.Calendar.Assign(t, req.UserID)
	synced := h.sync(c, t)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sincronizado": synced,
		"message":      "Incidencia " + t.No + " asignada correctamente",
	})
}

type UnassignRequest struct {
	No string `json:"no" validate:"required"`
}

// @Summary Remove a ticket from its user's calendar
// @Tags calendario
// @Accept json
// @Produce json
// @Param body body UnassignRequest true "ticket"
// @Success 200 {object} map[string]any
// @Router /api/desasignar-incidencia [post]
func (h *Handler) UnassignTicket(c *gin.Context) {
	var req UnassignRequest
	if !h.bind(c, &req) {
		return
	}
	t, ok := h.Calendar.Unassign(req.No)
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Incidencia "+req.No+" no asignada", nil)
		return
	}
	synced := h.sync(c, t)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sincronizado": synced,
		"message":      "Incidencia " + t.No + " desasignada correctamente",
	})
}
