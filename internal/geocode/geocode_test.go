package geocode

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/models"
)

func TestCoordinatesFromDetail(t *testing.T) {
	c, ok := CoordinatesFromDetail(map[string]any{"puntoX": 2.6502, "puntoY": "39,5696"})
	if !ok {
		t.Fatalf("expected coordinates")
	}
	if c.Lat != 39.5696 || c.Lon != 2.6502 {
		t.Fatalf("unexpected coordinates: %+v", c)
	}
}

func TestCoordinatesFromDetailMissingOrNaN(t *testing.T) {
	cases := []map[string]any{
		nil,
		{},
		{"puntoX": 2.0},
		{"puntoX": math.NaN(), "puntoY": 39.0},
		{"puntoX": "NaN", "puntoY": 39.0},
		{"puntoX": "abc", "puntoY": 39.0},
		{"puntoX": 2.0, "puntoY": 120.0},
	}
	for i, detail := range cases {
		if c, ok := CoordinatesFromDetail(detail); ok || c != nil {
			t.Fatalf("case %d: expected no coordinates, got %+v", i, c)
		}
	}
}

type fakeDetails struct {
	calls  int
	detail map[string]any
	err    error
}

func (f *fakeDetails) FetchTicketDetail(ctx context.Context, id string) (map[string]any, error) {
	f.calls++
	return f.detail, f.err
}

func TestDetailLocatorCachesResults(t *testing.T) {
	src := &fakeDetails{detail: map[string]any{"puntoX": 2.65, "puntoY": 39.57}}
	l := NewDetailLocator(src, 0, zerolog.Nop())
	ticket := models.Ticket{No: "INC-1", GTaskID: "g-1"}

	for i := 0; i < 3; i++ {
		c, err := l.Locate(context.Background(), ticket)
		if err != nil || c == nil {
			t.Fatalf("expected coordinates, got %v %v", c, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", src.calls)
	}
}

func TestDetailLocatorToleratesFailures(t *testing.T) {
	src := &fakeDetails{err: errors.New("unreachable")}
	l := NewDetailLocator(src, 100, zerolog.Nop())

	c, err := l.Locate(context.Background(), models.Ticket{No: "INC-1", GTaskID: "g-1"})
	if err != nil || c != nil {
		t.Fatalf("expected no signal without error, got %v %v", c, err)
	}
	c, err = l.Locate(context.Background(), models.Ticket{No: "INC-2"})
	if err != nil || c != nil {
		t.Fatalf("ticket without task id must yield no signal")
	}
}

func TestDetailLocatorRetriesMissesAndFailures(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	src := &fakeDetails{err: errors.New("timeout")}
	l := NewDetailLocator(src, 0, zerolog.Nop())
	l.Now = func() time.Time { return now }
	ticket := models.Ticket{No: "INC-1", GTaskID: "g-1"}

	l.Locate(context.Background(), ticket)
	src.err = nil
	src.detail = map[string]any{"puntoX": ""}
	if c, _ := l.Locate(context.Background(), ticket); c != nil || src.calls != 2 {
		t.Fatalf("a failed lookup must not be cached, calls=%d", src.calls)
	}

	src.detail = map[string]any{"puntoX": 2.65, "puntoY": 39.57}
	if c, _ := l.Locate(context.Background(), ticket); c != nil || src.calls != 2 {
		t.Fatalf("a fresh miss must be served from cache, calls=%d", src.calls)
	}

	now = now.Add(DefaultMissTTL + time.Minute)
	c, _ := l.Locate(context.Background(), ticket)
	if c == nil || c.Lat != 39.57 || src.calls != 3 {
		t.Fatalf("expired miss must be looked up again, got %v calls=%d", c, src.calls)
	}
}
