package service

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/models"
)

var fixedNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testTickets() []models.Ticket {
	return []models.Ticket{
		{No: "INC-001", GTaskID: "6f1c2a90-aa01", State: models.StateOpen},
		{No: "INC-002", GTaskID: "6f1c2a90-bb02", State: models.StateOpen},
		{No: "INC-003", State: models.StateOpen},
	}
}

func testUsers() []models.User {
	return []models.User{
		{ID: "user-ana-01", Name: "Ana"},
		{ID: "user-bruno-02", Name: "Bruno"},
	}
}

func testValidator() *Validator {
	return &Validator{
		Config:  DefaultPlanConfig(),
		Tickets: testTickets(),
		Users:   testUsers(),
		From:    date(2026, 10, 16),
		To:      date(2026, 10, 31),
		Now:     func() time.Time { return fixedNow },
		Logger:  zerolog.Nop(),
	}
}

func entry(ticket, user, day, clock string) map[string]any {
	return map[string]any{"incidencia_id": ticket, "usuario_id": user, "fecha": day, "hora_inicio": clock, "razon": "test"}
}

func TestValidateSaturdayAdvancesToMonday(t *testing.T) {
	report := testValidator().Validate([]map[string]any{entry("6f1c2a90-aa01", "user-ana-01", "2026-10-17", "08:00")})
	if len(report.Accepted) != 1 {
		t.Fatalf("expected acceptance, got rejections %+v", report.Rejected)
	}
	if report.Accepted[0].Date != "2026-10-19" {
		t.Fatalf("expected monday, got %s", report.Accepted[0].Date)
	}
}

func TestValidateWeekendAdvanceLeavingRangeIsRejected(t *testing.T) {
	v := testValidator()
	v.To = date(2026, 10, 18)
	report := v.Validate([]map[string]any{entry("INC-001", "user-ana-01", "2026-10-17", "08:00")})
	if len(report.Accepted) != 0 || report.Rejected[0].Reason != ReasonOutOfRange {
		t.Fatalf("expected out of range after advance, got %+v", report)
	}
}

func TestValidateUnknownTicketRejected(t *testing.T) {
	report := testValidator().Validate([]map[string]any{
		entry("INC-999", "user-ana-01", "2026-10-19", "08:00"),
		entry("INC-002", "user-ana-01", "2026-10-19", "08:30"),
	})
	if len(report.Accepted) != 1 || report.Accepted[0].TicketID != "6f1c2a90-bb02" {
		t.Fatalf("expected only INC-002 accepted and normalized, got %+v", report.Accepted)
	}
	if len(report.Rejected) != 1 || report.Rejected[0].Reason != ReasonUnknownTicket || report.Rejected[0].TicketID != "INC-999" {
		t.Fatalf("unexpected rejections %+v", report.Rejected)
	}
}

func TestValidateRejectionReasons(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"placeholder ticket", entry("ID de la incidencia", "user-ana-01", "", ""), ReasonPlaceholderID},
		{"placeholder user fragment", entry("INC-001", "valor_real_del_campo_id_del_usuario", "", ""), ReasonPlaceholderID},
		{"missing user", entry("INC-001", "", "", ""), ReasonMissingID},
		{"bad date", entry("INC-001", "user-ana-01", "19/10/2026", ""), ReasonInvalidDate},
		{"stale year", entry("INC-001", "user-ana-01", "2024-10-21", ""), ReasonWrongYear},
		{"outside range", entry("INC-001", "user-ana-01", "2026-11-03", ""), ReasonOutOfRange},
		{"unknown user", entry("INC-001", "550e8400-e29b-41d4-a716-446655440000", "", ""), ReasonUnknownUser},
		{"ambiguous ticket", entry("6f1c2a90", "user-ana-01", "", ""), ReasonAmbiguousTicket},
		{"ambiguous user", entry("INC-001", "user-", "", ""), ReasonAmbiguousUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := testValidator().Validate([]map[string]any{tc.in})
			if len(report.Accepted) != 0 || len(report.Rejected) != 1 {
				t.Fatalf("expected one rejection, got %+v", report)
			}
			if got := report.Rejected[0].Reason; got != tc.want {
				t.Fatalf("expected %s, got %s (%s)", tc.want, got, report.Rejected[0].Detail)
			}
		})
	}
}

func TestValidateRepairsTimesAndIds(t *testing.T) {
	report := testValidator().Validate([]map[string]any{
		entry("aa01", "ana-01", "2026-10-19", "14:00"),
		entry("INC-003", "user-bruno-02", "2026-10-20", "8h"),
		{"ticket_id": "INC-002", "user_id": "user-ana-01", "date": "2026-10-21", "start_time": "12:30"},
	})
	if len(report.Rejected) != 0 {
		t.Fatalf("unexpected rejections %+v", report.Rejected)
	}
	first := report.Accepted[0]
	if first.TicketID != "6f1c2a90-aa01" || first.UserID != "user-ana-01" || first.StartTime != "06:30" {
		t.Fatalf("expected normalized ids and clamped time, got %+v", first)
	}
	if report.Accepted[1].StartTime != "06:30" {
		t.Fatalf("malformed time must fall back to window start, got %s", report.Accepted[1].StartTime)
	}
	if report.Accepted[2].StartTime != "12:30" || report.Accepted[2].TicketID != "6f1c2a90-bb02" {
		t.Fatalf("window end is inclusive, got %+v", report.Accepted[2])
	}
}

func TestValidateNumericIds(t *testing.T) {
	v := testValidator()
	v.Tickets = []models.Ticket{{No: "1024", State: models.StateOpen}}
	v.Users = []models.User{{ID: "77"}}
	report := v.Validate([]map[string]any{{"incidencia_id": float64(1024), "usuario_id": float64(77)}})
	if len(report.Accepted) != 1 || report.Accepted[0].TicketID != "1024" || report.Accepted[0].UserID != "77" {
		t.Fatalf("expected numeric ids accepted, got %+v", report)
	}
}

func TestValidateRoundTrip(t *testing.T) {
	plan := []models.ProposedAssignment{
		{TicketID: "6f1c2a90-aa01", UserID: "user-ana-01", Date: "2026-10-19", StartTime: "06:30", Reason: "cerca"},
		{TicketID: "6f1c2a90-bb02", UserID: "user-bruno-02", Date: "2026-10-20", StartTime: "07:00", Reason: "carga baja"},
		{TicketID: "INC-003", UserID: "user-ana-01", Date: "2026-10-21", StartTime: "12:00", Reason: "sin coordenadas"},
	}
	b, err := json.Marshal(map[string]any{"asignaciones": plan})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	raw, ok := ParsePlan(string(b))
	if !ok {
		t.Fatalf("expected parse")
	}
	report := testValidator().Validate(raw)
	if !reflect.DeepEqual(report.Accepted, plan) {
		t.Fatalf("round trip changed the plan:\n got %+v\nwant %+v", report.Accepted, plan)
	}
}
