package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/calendar"
	"github.com/gmalla/backend/internal/erp"
	"github.com/gmalla/backend/internal/gtask"
	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/service"
)

// TicketSource is the ERP surface the handlers read and write through.
type TicketSource interface {
	FetchTickets(ctx context.Context, filter *erp.Filter) ([]models.Ticket, error)
	FindTicket(ctx context.Context, key string) (models.Ticket, error)
	UpdateTicket(ctx context.Context, t models.Ticket) error
	FetchTicketDetail(ctx context.Context, gtaskID string) (map[string]any, error)
}

type Directory interface {
	Login(ctx context.Context, username, password string) (gtask.SessionInfo, error)
	Logout()
	Status() gtask.SessionInfo
	ListUsers(ctx context.Context) ([]models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
}

type Planner interface {
	PlanTickets(ctx context.Context, req service.PlanRequest, filter *erp.Filter) (models.PlanResult, error)
}

// HealthCheck is an optional dependency probed by /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handler struct {
	Tickets   TicketSource
	Users     Directory
	Planner   Planner
	Calendar  *calendar.Store
	Checks    []HealthCheck
	Validator *validator.Validate
	Logger    zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	for _, check := range h.Checks {
		if err := check.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", check.Name+" unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// ticketView is the JSON shape the calendar front end consumes.
type ticketView struct {
	No            string  `json:"no"`
	Description   string  `json:"descripcion"`
	Date          *string `json:"fecha"`
	State         string  `json:"estado"`
	Resource      string  `json:"recurso"`
	Type          string  `json:"tipo_incidencia"`
	UserID        string  `json:"usuario"`
	DateTime      *string `json:"fecha_hora"`
	GTaskID       string  `json:"id_gtask"`
	FirstImageURL string  `json:"url_primera_imagen"`
}

func viewOf(t models.Ticket) ticketView {
	v := ticketView{
		No:            t.No,
		Description:   t.Description,
		State:         string(t.State),
		Resource:      t.Resource,
		Type:          t.Type,
		UserID:        t.UserID,
		GTaskID:       t.GTaskID,
		FirstImageURL: t.FirstImageURL,
	}
	if t.Date != nil {
		s := t.Date.Format("2006-01-02")
		v.Date = &s
	}
	if t.DateTime != nil {
		s := t.DateTime.Format("2006-01-02T15:04:05")
		v.DateTime = &s
	}
	return v
}

func viewsOf(tickets []models.Ticket) []ticketView {
	out := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, viewOf(t))
	}
	return out
}

func filterFromQuery(c *gin.Context) *erp.Filter {
	f := erp.Filter{
		State:    strings.TrimSpace(c.Query("estado")),
		Resource: strings.TrimSpace(c.Query("recurso")),
	}
	if f == (erp.Filter{}) {
		return nil
	}
	return &f
}
