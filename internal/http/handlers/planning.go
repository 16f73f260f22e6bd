package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gmalla/backend/internal/erp"
	"github.com/gmalla/backend/internal/service"
	"github.com/gmalla/backend/internal/utils"
)

type AutoAssignRequest struct {
	Users          []string `json:"usuarios" validate:"omitempty,dive,required"`
	ApplyChanges   bool     `json:"aplicar_cambios"`
	OnlyUnassigned *bool    `json:"solo_sin_asignar"`
	Reassign       bool     `json:"reasignar"`
	From           string   `json:"fecha_inicio" validate:"omitempty,datetime=2006-01-02"`
	To             string   `json:"fecha_fin" validate:"omitempty,datetime=2006-01-02"`
	State          string   `json:"estado"`
	Resource       string   `json:"recurso"`
}

func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := utils.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

// @Summary Plan (and optionally apply) ticket assignments with the solver
// @Tags asignacion
// @Accept json
// @Produce json
// @Param body body AutoAssignRequest true "planning options"
// @Success 200 {object} models.PlanResult
// @Failure 502 {object} models.PlanResult
// @Router /api/asignacion-automatica [post]
func (h *Handler) AutoAssign(c *gin.Context) {
	var req AutoAssignRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	from, to := optionalDate(req.From), optionalDate(req.To)
	if from != nil && to != nil && to.Before(*from) {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "fecha_fin before fecha_inicio", nil)
		return
	}

	onlyUnassigned := true
	if req.OnlyUnassigned != nil {
		onlyUnassigned = *req.OnlyUnassigned
	}
	var filter *erp.Filter
	if req.State != "" || req.Resource != "" {
		filter = &erp.Filter{State: req.State, Resource: req.Resource}
	}

	result, err := h.Planner.PlanTickets(c.Request.Context(), service.PlanRequest{
		UserFilter:     req.Users,
		ApplyChanges:   req.ApplyChanges,
		OnlyUnassigned: onlyUnassigned,
		Reassign:       req.Reassign,
		From:           from,
		To:             to,
	}, filter)
	if err != nil {
		h.Logger.Error().Err(err).Msg("planning failed")
		writeError(c, http.StatusInternalServerError, "PLANNING_ERROR", "Planning failed", err.Error())
		return
	}

	status := http.StatusOK
	if !result.Success && result.Outcome == "" {
		status = http.StatusBadGateway
	}
	c.JSON(status, result)
}
