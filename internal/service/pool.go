package service

import (
	"time"

	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/utils"
)

type PoolOptions struct {
	UserFilter     []string
	OnlyUnassigned bool
	Reassign       bool
	From           *time.Time
	To             *time.Time
}

// SelectCandidates picks the tickets a planning run may assign. Closed tickets never qualify;
// dateless tickets are kept whenever a date range is given.
func SelectCandidates(tickets []models.Ticket, opts PoolOptions) []models.Ticket {
	allowed := map[string]bool{}
	for _, id := range opts.UserFilter {
		allowed[id] = true
	}

	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !t.State.IsOpen() {
			continue
		}
		if t.Date != nil && !utils.InRange(*t.Date, opts.From, opts.To) {
			continue
		}
		if !opts.Reassign && opts.OnlyUnassigned && t.Assigned() && (len(allowed) == 0 || allowed[t.UserID]) {
			continue
		}
		out = append(out, t)
	}
	return out
}
