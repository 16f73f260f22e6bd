package service

import "github.com/gmalla/backend/internal/models"

// Dedupe keeps the first assignment per ticket id and returns the later ones separately.
func Dedupe(plan []models.ProposedAssignment) (kept, dropped []models.ProposedAssignment) {
	seen := make(map[string]bool, len(plan))
	kept = make([]models.ProposedAssignment, 0, len(plan))
	for _, a := range plan {
		if seen[a.TicketID] {
			dropped = append(dropped, a)
			continue
		}
		seen[a.TicketID] = true
		kept = append(kept, a)
	}
	return kept, dropped
}

// Unassigned lists the candidate keys no assignment in plan covers.
func Unassigned(candidates []models.Ticket, plan []models.ProposedAssignment) []string {
	covered := make(map[string]bool, len(plan))
	for _, a := range plan {
		covered[a.TicketID] = true
	}
	var out []string
	for _, t := range candidates {
		if !covered[t.Key()] {
			out = append(out, t.Key())
		}
	}
	return out
}
