package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gmalla/backend/internal/models"
)

// DefaultMissTTL bounds how long a detail without coordinates is remembered.
const DefaultMissTTL = 15 * time.Minute

// DetailLocator looks coordinates up through the ticket-source detail procedure.
// Found coordinates are cached per task id; misses expire after MissTTL and failed lookups are not cached.
type DetailLocator struct {
	Source  DetailSource
	Limiter *rate.Limiter
	Logger  zerolog.Logger
	MissTTL time.Duration
	Now     func() time.Time

	mu    sync.Mutex
	cache map[string]cachedCoords
}

type cachedCoords struct {
	coords  *models.Coordinates
	expires time.Time
}

func (l *DetailLocator) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func NewDetailLocator(source DetailSource, rps float64, logger zerolog.Logger) *DetailLocator {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &DetailLocator{Source: source, Limiter: limiter, Logger: logger, MissTTL: DefaultMissTTL}
}

func (l *DetailLocator) Locate(ctx context.Context, t models.Ticket) (*models.Coordinates, error) {
	if t.Coordinates != nil {
		return t.Coordinates, nil
	}
	if t.GTaskID == "" || l.Source == nil {
		return nil, nil
	}

	l.mu.Lock()
	if l.cache == nil {
		l.cache = map[string]cachedCoords{}
	}
	if cached, ok := l.cache[t.GTaskID]; ok {
		if cached.coords != nil || l.now().Before(cached.expires) {
			l.mu.Unlock()
			return cached.coords, nil
		}
		delete(l.cache, t.GTaskID)
	}
	l.mu.Unlock()

	if l.Limiter != nil {
		if err := l.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	detail, err := l.Source.FetchTicketDetail(ctx, t.GTaskID)
	if err != nil {
		l.Logger.Warn().Err(err).Str("ticket", t.No).Msg("coordinates lookup failed")
		return nil, nil
	}
	coords, _ := CoordinatesFromDetail(detail)

	entry := cachedCoords{coords: coords}
	if coords == nil {
		entry.expires = l.now().Add(l.MissTTL)
	}
	l.mu.Lock()
	l.cache[t.GTaskID] = entry
	l.mu.Unlock()
	return coords, nil
}
