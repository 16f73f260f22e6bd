package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/calendar"
	"github.com/gmalla/backend/internal/erp"
	"github.com/gmalla/backend/internal/events"
	"github.com/gmalla/backend/internal/models"
)

type fakeSource struct {
	tickets  []models.Ticket
	fetchErr error
	failNo   map[string]bool
	pushed   []models.Ticket
}

func (f *fakeSource) FetchTickets(ctx context.Context, filter *erp.Filter) ([]models.Ticket, error) {
	return f.tickets, f.fetchErr
}

func (f *fakeSource) UpdateTicket(ctx context.Context, t models.Ticket) error {
	if f.failNo[t.No] {
		return errors.New("status 500")
	}
	f.pushed = append(f.pushed, t)
	return nil
}

func TestApplyPartialFailure(t *testing.T) {
	store := calendar.NewStore()
	src := &fakeSource{failNo: map[string]bool{"INC-002": true}}
	rec := &events.Recorder{}
	a := &Applier{Calendar: store, Source: src, Publisher: rec, Now: func() time.Time { return fixedNow }, Logger: zerolog.Nop()}

	plan := []models.ProposedAssignment{
		{TicketID: "6f1c2a90-aa01", UserID: "user-ana-01", Date: "2026-10-19", StartTime: "07:30"},
		{TicketID: "6f1c2a90-bb02", UserID: "user-bruno-02", Date: "2026-10-19", StartTime: "08:00"},
		{TicketID: "INC-003", UserID: "user-bruno-02"},
	}
	applied, errs := a.Apply(context.Background(), plan, testTickets())

	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	if len(applied) != 2 || applied[0].TicketNo != "INC-001" || applied[1].TicketNo != "INC-003" {
		t.Fatalf("unexpected applied %+v", applied)
	}
	if applied[1].Date != "2026-10-16" {
		t.Fatalf("dateless assignment must default to today's working day, got %s", applied[1].Date)
	}

	first := src.pushed[0]
	if first.UserID != "user-ana-01" || first.DateTime == nil || first.DateTime.Format("2006-01-02 15:04") != "2026-10-19 07:30" {
		t.Fatalf("unexpected pushed ticket %+v", first)
	}
	if src.pushed[1].DateTime != nil {
		t.Fatalf("no start time means no datetime")
	}
	if got, ok := store.Find("INC-001"); !ok || got.UserID != "user-ana-01" {
		t.Fatalf("calendar not updated: %+v", got)
	}
	if len(rec.Events) != 2 || rec.Events[0].RoutingKey != events.RoutingAssignmentApplied {
		t.Fatalf("expected one event per applied assignment, got %+v", rec.Events)
	}
}

func TestApplyUnknownTicket(t *testing.T) {
	a := &Applier{Logger: zerolog.Nop(), Now: func() time.Time { return fixedNow }}
	applied, errs := a.Apply(context.Background(), []models.ProposedAssignment{{TicketID: "ghost", UserID: "u"}}, testTickets())
	if len(applied) != 0 || len(errs) != 1 {
		t.Fatalf("expected not-found error, got %v %v", applied, errs)
	}
}

func TestApplyMovesPreviouslyAssignedTicket(t *testing.T) {
	store := calendar.NewStore()
	tickets := testTickets()
	tickets[0].UserID = "user-bruno-02"
	store.Seed(tickets)

	a := &Applier{Calendar: store, Now: func() time.Time { return fixedNow }, Logger: zerolog.Nop()}
	_, errs := a.Apply(context.Background(), []models.ProposedAssignment{{TicketID: "6f1c2a90-aa01", UserID: "user-ana-01", Date: "2026-10-20"}}, tickets)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	sum := store.Summary()
	if sum["user-bruno-02"] != 0 || sum["user-ana-01"] != 1 {
		t.Fatalf("ticket must move between users, got %v", sum)
	}
}
