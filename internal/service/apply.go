package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/events"
	"github.com/gmalla/backend/internal/metrics"
	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/utils"
)

// CalendarWriter is the mutation side of the calendar store.
type CalendarWriter interface {
	Assign(t models.Ticket, userID string) models.Ticket
}

// TicketUpdater pushes a ticket back to the source of truth.
type TicketUpdater interface {
	UpdateTicket(ctx context.Context, t models.Ticket) error
}

type Applier struct {
	Calendar  CalendarWriter
	Source    TicketUpdater
	Publisher events.Publisher
	Now       func() time.Time
	Logger    zerolog.Logger
}

func (a *Applier) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Apply commits each assignment independently. A failed entry is reported in errs and never
// counted as applied; processing continues with the rest.
func (a *Applier) Apply(ctx context.Context, plan []models.ProposedAssignment, candidates []models.Ticket) (applied []models.AppliedAssignment, errs []string) {
	applied = []models.AppliedAssignment{}
	errs = []string{}

	for _, p := range plan {
		ticket, ok := findTicket(candidates, p.TicketID)
		if !ok {
			errs = append(errs, fmt.Sprintf("incidencia %s no encontrada", p.TicketID))
			metrics.PlannerApplied.WithLabelValues("not_found").Inc()
			continue
		}

		date := utils.WorkingDayOnOrAfter(a.now())
		if p.Date != "" {
			d, err := utils.ParseDate(p.Date)
			if err != nil {
				errs = append(errs, fmt.Sprintf("incidencia %s: fecha %q inválida", ticket.No, p.Date))
				metrics.PlannerApplied.WithLabelValues("invalid").Inc()
				continue
			}
			date = d
		}

		ticket.UserID = p.UserID
		ticket.Date = &date
		if p.StartTime != "" {
			if m, ok := parseClock(p.StartTime); ok {
				dt := date.Add(time.Duration(m) * time.Minute)
				ticket.DateTime = &dt
			}
		}

		if a.Calendar != nil {
			ticket = a.Calendar.Assign(ticket, p.UserID)
		}

		if a.Source != nil {
			if err := a.Source.UpdateTicket(ctx, ticket); err != nil {
				a.Logger.Error().Err(err).Str("ticket", ticket.No).Msg("ticket push failed")
				errs = append(errs, fmt.Sprintf("error al sincronizar incidencia %s: %v", ticket.No, err))
				metrics.PlannerApplied.WithLabelValues("push_failed").Inc()
				continue
			}
		}

		done := models.AppliedAssignment{
			TicketID:  p.TicketID,
			TicketNo:  ticket.No,
			UserID:    p.UserID,
			Date:      utils.FormatDate(date),
			StartTime: p.StartTime,
		}
		applied = append(applied, done)
		metrics.PlannerApplied.WithLabelValues("applied").Inc()

		if a.Publisher != nil {
			if err := a.Publisher.Publish(ctx, events.RoutingAssignmentApplied, done); err != nil {
				a.Logger.Warn().Err(err).Str("ticket", ticket.No).Msg("assignment event not published")
			}
		}
	}
	return applied, errs
}

func findTicket(tickets []models.Ticket, key string) (models.Ticket, bool) {
	for _, t := range tickets {
		if t.GTaskID == key || t.No == key {
			return t, true
		}
	}
	return models.Ticket{}, false
}
