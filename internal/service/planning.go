package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/ai"
	"github.com/gmalla/backend/internal/erp"
	"github.com/gmalla/backend/internal/events"
	"github.com/gmalla/backend/internal/geocode"
	"github.com/gmalla/backend/internal/metrics"
	"github.com/gmalla/backend/internal/models"
)

type UserDirectory interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

type TicketSource interface {
	FetchTickets(ctx context.Context, filter *erp.Filter) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, t models.Ticket) error
}

type CalendarStore interface {
	CalendarView
	CalendarWriter
	Seed(tickets []models.Ticket) int
}

type PlanRequest struct {
	Tickets        []models.Ticket
	UserFilter     []string
	ApplyChanges   bool
	OnlyUnassigned bool
	Reassign       bool
	From           *time.Time
	To             *time.Time
}

type PlanningService struct {
	Users     UserDirectory
	Solver    ai.Solver
	Locator   geocode.Locator
	Calendar  CalendarStore
	Source    TicketSource
	Publisher events.Publisher
	Config    PlanConfig
	Now       func() time.Time
	Logger    zerolog.Logger
}

func (s *PlanningService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PlanTickets fetches the current tickets from the source and plans over them.
func (s *PlanningService) PlanTickets(ctx context.Context, req PlanRequest, filter *erp.Filter) (models.PlanResult, error) {
	tickets, err := s.Source.FetchTickets(ctx, filter)
	if err != nil {
		s.Logger.Error().Err(err).Msg("ticket fetch failed")
		metrics.PlannerRuns.WithLabelValues("upstream_error").Inc()
		return models.PlanResult{
			RunID:    uuid.NewString(),
			Error:    fmt.Sprintf("no se pudieron obtener incidencias: %v", err),
			Proposed: []models.ProposedAssignment{},
			Applied:  []models.AppliedAssignment{},
			Errors:   []string{},
		}, nil
	}
	if s.Calendar != nil {
		s.Calendar.Seed(tickets)
	}
	req.Tickets = tickets
	return s.PlanAssignments(ctx, req)
}

// PlanAssignments runs one planning pipeline: context, one solver call, validation, dedupe and
// optional application. Upstream, parse and validation failures are reported in the result.
func (s *PlanningService) PlanAssignments(ctx context.Context, req PlanRequest) (models.PlanResult, error) {
	started := s.now()
	result := models.PlanResult{
		RunID:    uuid.NewString(),
		Proposed: []models.ProposedAssignment{},
		Applied:  []models.AppliedAssignment{},
		Errors:   []string{},
	}
	log := s.Logger.With().Str("run_id", result.RunID).Logger()
	log.Info().
		Int("tickets", len(req.Tickets)).
		Bool("apply", req.ApplyChanges).
		Bool("reassign", req.Reassign).
		Bool("only_unassigned", req.OnlyUnassigned).
		Msg("planning run started")

	users, err := s.Users.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("user directory unavailable")
		result.Error = fmt.Sprintf("no se pudieron obtener usuarios: %v", err)
		metrics.PlannerRuns.WithLabelValues("upstream_error").Inc()
		return result, nil
	}

	candidates := SelectCandidates(req.Tickets, PoolOptions{
		UserFilter:     req.UserFilter,
		OnlyUnassigned: req.OnlyUnassigned,
		Reassign:       req.Reassign,
		From:           req.From,
		To:             req.To,
	})
	if len(candidates) == 0 {
		result.Success = true
		result.Outcome = models.OutcomeNothingToPlan
		result.Message = "No hay incidencias para asignar"
		s.finish(ctx, log, &result, started)
		return result, nil
	}

	pool := FilterUsers(users, req.UserFilter)
	if len(pool) == 0 {
		result.Error = "no hay usuarios disponibles para asignar"
		metrics.PlannerRuns.WithLabelValues("upstream_error").Inc()
		log.Warn().Strs("filter", req.UserFilter).Msg("no users left after filter")
		return result, nil
	}

	builder := &PromptBuilder{Locator: s.Locator, Calendar: s.Calendar, Config: s.Config, Now: s.Now, Logger: log}
	pc := builder.BuildContext(ctx, candidates, pool, req.From, req.To)
	prompt, err := builder.RenderPrompt(pc)
	if err != nil {
		return result, err
	}

	solveStart := time.Now()
	text, err := s.Solver.Complete(ctx, ai.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: SystemPrompt,
		MaxTokens:    s.Config.MaxTokens,
		Temperature:  s.Config.Temperature,
	})
	metrics.SolverSeconds.Observe(time.Since(solveStart).Seconds())
	if err != nil {
		log.Error().Err(err).Msg("solver call failed")
		result.Error = fmt.Sprintf("error al obtener respuesta del solver: %v", err)
		metrics.PlannerRuns.WithLabelValues("upstream_error").Inc()
		return result, nil
	}
	result.RawResponse = text

	raw, ok := ParsePlan(text)
	if !ok {
		result.Outcome = models.OutcomeNoPlan
		result.Error = "no se pudieron parsear las asignaciones de la respuesta"
		s.finish(ctx, log, &result, started)
		return result, nil
	}

	v := &Validator{Config: s.Config, Tickets: candidates, Users: pool, From: req.From, To: req.To, Now: s.Now, Logger: log}
	report := v.Validate(raw)
	result.Rejected = report.Rejected
	for _, r := range report.Rejected {
		metrics.PlannerRejections.WithLabelValues(r.Reason).Inc()
	}

	if len(report.Accepted) == 0 {
		result.Outcome = models.OutcomeEmptyPlan
		result.Error = "no se encontraron asignaciones válidas tras la validación"
		result.Parsed = raw
		s.finish(ctx, log, &result, started)
		return result, nil
	}

	kept, dropped := Dedupe(report.Accepted)
	for _, d := range dropped {
		log.Info().Str("ticket_id", d.TicketID).Str("user_id", d.UserID).Msg("duplicate assignment dropped")
	}
	result.Duplicates = len(dropped)
	metrics.PlannerDuplicates.Add(float64(len(dropped)))

	result.Unassigned = Unassigned(candidates, kept)
	if len(result.Unassigned) > 0 {
		log.Warn().Strs("tickets", result.Unassigned).Msg("tickets left without assignment")
	}

	result.Success = true
	result.Outcome = models.OutcomeValidPlan
	result.Proposed = kept

	if req.ApplyChanges {
		applier := &Applier{Calendar: s.Calendar, Source: s.Source, Publisher: s.Publisher, Now: s.Now, Logger: log}
		result.Applied, result.Errors = applier.Apply(ctx, kept, candidates)
	}
	result.Message = fmt.Sprintf("%d asignaciones propuestas, %d aplicadas, %d errores", len(result.Proposed), len(result.Applied), len(result.Errors))

	s.finish(ctx, log, &result, started)
	return result, nil
}

func (s *PlanningService) finish(ctx context.Context, log zerolog.Logger, result *models.PlanResult, started time.Time) {
	metrics.PlannerRuns.WithLabelValues(string(result.Outcome)).Inc()
	log.Info().
		Str("outcome", string(result.Outcome)).
		Bool("success", result.Success).
		Int("proposed", len(result.Proposed)).
		Int("applied", len(result.Applied)).
		Int("errors", len(result.Errors)).
		Int("rejected", len(result.Rejected)).
		Int("duplicates", result.Duplicates).
		Int("unassigned", len(result.Unassigned)).
		Dur("elapsed", s.now().Sub(started)).
		Msg("planning run finished")

	if s.Publisher == nil {
		return
	}
	summary := map[string]any{
		"run_id":     result.RunID,
		"outcome":    result.Outcome,
		"success":    result.Success,
		"proposed":   len(result.Proposed),
		"applied":    len(result.Applied),
		"errors":     len(result.Errors),
		"rejected":   len(result.Rejected),
		"duplicates": result.Duplicates,
	}
	if err := s.Publisher.Publish(ctx, events.RoutingPlanCompleted, summary); err != nil {
		log.Warn().Err(err).Msg("plan event not published")
	}
}
