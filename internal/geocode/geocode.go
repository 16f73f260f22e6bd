package geocode

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gmalla/backend/internal/models"
)

// Locator resolves a ticket to coordinates. A nil result with a nil error means no geographic signal.
type Locator interface {
	Locate(ctx context.Context, t models.Ticket) (*models.Coordinates, error)
}

// DetailSource is the ticket-source detail lookup the coordinates come from.
type DetailSource interface {
	FetchTicketDetail(ctx context.Context, gtaskID string) (map[string]any, error)
}

// CoordinatesFromDetail reads puntoY (latitude) and puntoX (longitude) from a ticket detail.
func CoordinatesFromDetail(detail map[string]any) (*models.Coordinates, bool) {
	if detail == nil {
		return nil, false
	}
	lon, ok := numberField(detail, "puntoX")
	if !ok {
		return nil, false
	}
	lat, ok := numberField(detail, "puntoY")
	if !ok {
		return nil, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, false
	}
	return &models.Coordinates{Lat: lat, Lon: lon}, true
}

func numberField(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
