package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gmalla/backend/internal/utils"
)

// Prompt section headers. Each is followed by a JSON document.
const (
	SectionTickets = "INCIDENCIAS A ASIGNAR:"
	SectionUsers   = "USUARIOS DISPONIBLES:"
	SectionConfig  = "CONFIGURACIÓN:"
)

// MockSolver answers offline with a deterministic plan built from the ids embedded in the prompt.
type MockSolver struct {
	Now func() time.Time
}

type mockConfig struct {
	StartClock  string `json:"hora_inicio"`
	EndClock    string `json:"hora_fin"`
	MinMinutes  int    `json:"tiempo_minimo_resolucion"`
	FechaInicio string `json:"fecha_inicio"`
	FechaFin    string `json:"fecha_fin"`
}

type mockAssignment struct {
	TicketID  string `json:"incidencia_id"`
	UserID    string `json:"usuario_id"`
	Date      string `json:"fecha"`
	StartTime string `json:"hora_inicio"`
	Reason    string `json:"razon"`
}

func (m MockSolver) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var tickets []struct {
		ID string `json:"id"`
		No string `json:"no"`
	}
	var users []struct {
		ID string `json:"id"`
	}
	cfg := mockConfig{StartClock: "06:30", EndClock: "12:30", MinMinutes: 20}

	if err := section(req.Prompt, SectionTickets, &tickets); err != nil {
		return "", err
	}
	if err := section(req.Prompt, SectionUsers, &users); err != nil {
		return "", err
	}
	_ = section(req.Prompt, SectionConfig, &cfg)

	if len(users) == 0 || len(tickets) == 0 {
		return `{"asignaciones": []}`, nil
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	first := utils.WorkingDayOnOrAfter(now())
	if d, err := utils.ParseDate(cfg.FechaInicio); err == nil && d.After(first) {
		first = utils.WorkingDayOnOrAfter(d)
	}
	var last *time.Time
	if d, err := utils.ParseDate(cfg.FechaFin); err == nil && !d.Before(first) {
		last = &d
	}
	start := clockMinutes(cfg.StartClock, 6*60+30)
	end := clockMinutes(cfg.EndClock, 12*60+30)
	step := cfg.MinMinutes
	if step <= 0 {
		step = 20
	}

	type cursor struct {
		day    time.Time
		minute int
	}
	cursors := map[string]*cursor{}
	out := make([]mockAssignment, 0, len(tickets))
	for _, t := range tickets {
		id := t.ID
		if id == "" {
			id = t.No
		}
		user := users[utils.PickIndex(id, len(users))].ID
		c, ok := cursors[user]
		if !ok {
			c = &cursor{day: first, minute: start}
			cursors[user] = c
		}
		if c.minute > end {
			// Past the last visible day the cursor stays put and reuses the day's slots.
			if next := utils.NextWorkingDay(c.day); last == nil || !next.After(*last) {
				c.day = next
			}
			c.minute = start
		}
		out = append(out, mockAssignment{
			TicketID:  id,
			UserID:    user,
			Date:      utils.FormatDate(c.day),
			StartTime: fmt.Sprintf("%02d:%02d", c.minute/60, c.minute%60),
			Reason:    "reparto determinista sin modelo",
		})
		c.minute += step
	}

	b, err := json.MarshalIndent(map[string]any{"asignaciones": out}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func section(prompt, header string, v any) error {
	idx := strings.Index(prompt, header)
	if idx < 0 {
		return fmt.Errorf("prompt has no %q section", strings.TrimSuffix(header, ":"))
	}
	dec := json.NewDecoder(strings.NewReader(prompt[idx+len(header):]))
	return dec.Decode(v)
}

func clockMinutes(s string, fallback int) int {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return fallback
	}
	return h*60 + m
}
