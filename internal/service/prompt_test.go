package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/calendar"
	"github.com/gmalla/backend/internal/models"
)

type stubLocator map[string]*models.Coordinates

func (s stubLocator) Locate(ctx context.Context, t models.Ticket) (*models.Coordinates, error) {
	return s[t.GTaskID], nil
}

func TestSlotsSpanWindow(t *testing.T) {
	slots := DefaultPlanConfig().Slots()
	if len(slots) != 12 || slots[0] != "06:30" || slots[11] != "12:00" {
		t.Fatalf("unexpected slots %v", slots)
	}
}

func TestBuildContext(t *testing.T) {
	store := calendar.NewStore()
	store.Assign(models.Ticket{No: "OLD-1", Date: date(2026, 10, 19)}, "user-ana-01")

	b := &PromptBuilder{
		Locator: stubLocator{
			"6f1c2a90-aa01": {Lat: 39.5696, Lon: 2.6502},
			"6f1c2a90-bb02": {Lat: 39.5800, Lon: 2.6600},
		},
		Calendar: store,
		Config:   DefaultPlanConfig(),
		Now:      func() time.Time { return fixedNow },
		Logger:   zerolog.Nop(),
	}
	tickets := testTickets()
	tickets[0].Description = strings.Repeat("ñ", 250)
	tickets[0].Date = date(2026, 10, 10)

	pc := b.BuildContext(context.Background(), tickets, testUsers(), date(2026, 10, 16), date(2026, 10, 31))

	if len(pc.Tickets) != 3 || pc.Tickets[0].ID != "6f1c2a90-aa01" || pc.Tickets[2].ID != "INC-003" {
		t.Fatalf("unexpected ticket ids %+v", pc.Tickets)
	}
	if n := len([]rune(pc.Tickets[0].Description)); n != 200 {
		t.Fatalf("description must be truncated to 200 runes, got %d", n)
	}
	if pc.Tickets[0].OriginalDate == nil || *pc.Tickets[0].OriginalDate != "2026-10-10" {
		t.Fatalf("expected original date, got %v", pc.Tickets[0].OriginalDate)
	}
	if pc.Tickets[2].Coordinates != nil || pc.Tickets[2].Nearby != nil {
		t.Fatalf("ticket without task id must have no coordinates")
	}
	near := pc.Tickets[0].Nearby
	if len(near) != 1 || near[0].ID != "6f1c2a90-bb02" || near[0].TravelMinutes != 5 || near[0].TotalMinutes != 25 {
		t.Fatalf("unexpected nearby %+v", near)
	}
	load := pc.Calendar["user-ana-01"]
	if len(load) != 31 || load["2026-10-19"] != 1 || load["2026-10-16"] != 0 {
		t.Fatalf("unexpected calendar load %v", load)
	}
	if pc.Config.From == nil || *pc.Config.From != "2026-10-16" || pc.Config.DailyHours != 6 {
		t.Fatalf("unexpected configuration %+v", pc.Config)
	}
}

func TestRenderPrompt(t *testing.T) {
	b := &PromptBuilder{Config: DefaultPlanConfig(), Now: func() time.Time { return fixedNow }, Logger: zerolog.Nop()}
	pc := b.BuildContext(context.Background(), testTickets(), testUsers(), date(2026, 10, 17), date(2026, 10, 31))
	prompt, err := b.RenderPrompt(pc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Asignar 3 incidencias a 2 usuarios",
		"6 horas de trabajo diarias (06:30 a 12:30)",
		"SOLO UNA VEZ",
		"20 minutos",
		"sábados y domingos",
		"rango 2026-10-17 a 2026-10-31 (año 2026)",
		"INCIDENCIAS A ASIGNAR:",
		"USUARIOS DISPONIBLES:",
		"CALENDARIO ACTUAL",
		"  - user-ana-01 (Ana)",
		`"incidencia_id": "6f1c2a90-aa01"`,
		`"usuario_id": "user-ana-01"`,
		`"fecha": "2026-10-19"`,
		"06:30, 07:00, 07:30",
		"NO uses UUIDs inventados",
		`clave "asignaciones"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestRenderPromptWithoutRangeUsesCurrentYear(t *testing.T) {
	b := &PromptBuilder{Config: DefaultPlanConfig(), Now: func() time.Time { return fixedNow }, Logger: zerolog.Nop()}
	prompt, err := b.RenderPrompt(b.BuildContext(context.Background(), testTickets(), testUsers(), nil, nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(prompt, "Usa el año 2026") || !strings.Contains(prompt, `"fecha": "2026-10-16"`) {
		t.Fatalf("expected current year guidance and today's example date")
	}
}

func TestFilterUsers(t *testing.T) {
	if got := FilterUsers(testUsers(), nil); len(got) != 2 {
		t.Fatalf("empty filter keeps everyone")
	}
	got := FilterUsers(testUsers(), []string{"user-bruno-02", "ghost"})
	if len(got) != 1 || got[0].Name != "Bruno" {
		t.Fatalf("unexpected filtered users %+v", got)
	}
}
