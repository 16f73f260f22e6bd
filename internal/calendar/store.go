package calendar

import (
	"sort"
	"sync"
	"time"

	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/utils"
)

// Day is one calendar cell: the tickets a user has on a given date.
type Day struct {
	Date    string          `json:"fecha"`
	Tickets []models.Ticket `json:"incidencias"`
}

// Store keeps user -> assigned tickets in memory. A ticket lives under at most one user.
type Store struct {
	mu     sync.RWMutex
	byUser map[string][]*models.Ticket
}

func NewStore() *Store {
	return &Store{byUser: map[string][]*models.Ticket{}}
}

func matches(t *models.Ticket, key string) bool {
	return key != "" && (t.No == key || t.GTaskID == key)
}

// locate returns the owner and index of key; callers hold the lock.
func (s *Store) locate(key string) (string, int) {
	for user, tickets := range s.byUser {
		for i, t := range tickets {
			if matches(t, key) {
				return user, i
			}
		}
	}
	return "", -1
}

func (s *Store) remove(user string, idx int) *models.Ticket {
	tickets := s.byUser[user]
	t := tickets[idx]
	s.byUser[user] = append(tickets[:idx], tickets[idx+1:]...)
	if len(s.byUser[user]) == 0 {
		delete(s.byUser, user)
	}
	return t
}

// Assign places t under userID, removing any previous placement of the same ticket.
func (s *Store) Assign(t models.Ticket, userID string) models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, idx := s.locate(t.Key()); idx >= 0 {
		s.remove(owner, idx)
	} else if t.GTaskID != "" && t.No != "" {
		if owner, idx := s.locate(t.No); idx >= 0 {
			s.remove(owner, idx)
		}
	}
	cp := t
	cp.UserID = userID
	s.byUser[userID] = append(s.byUser[userID], &cp)
	return cp
}

func (s *Store) Unassign(key string) (models.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, idx := s.locate(key)
	if idx < 0 {
		return models.Ticket{}, false
	}
	t := s.remove(owner, idx)
	t.UserID = ""
	return *t, true
}

// MoveDate changes the ticket date, keeping the time of day of its datetime.
func (s *Store) MoveDate(key string, date time.Time) (models.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, idx := s.locate(key)
	if idx < 0 {
		return models.Ticket{}, false
	}
	t := s.byUser[owner][idx]
	d := utils.Day(date)
	t.Date = &d
	if t.DateTime != nil {
		h, m, sec := t.DateTime.Clock()
		dt := time.Date(d.Year(), d.Month(), d.Day(), h, m, sec, 0, t.DateTime.Location())
		t.DateTime = &dt
	}
	return *t, true
}

func (s *Store) MoveUser(key, userID string) (models.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, idx := s.locate(key)
	if idx < 0 {
		return models.Ticket{}, false
	}
	t := s.remove(owner, idx)
	t.UserID = userID
	s.byUser[userID] = append(s.byUser[userID], t)
	return *t, true
}

func (s *Store) Find(key string) (models.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, idx := s.locate(key)
	if idx < 0 {
		return models.Ticket{}, false
	}
	return *s.byUser[owner][idx], true
}

// TicketsForUser lists the user's tickets dated within [from, to]. Dateless tickets are always included.
func (s *Store) TicketsForUser(userID string, from, to *time.Time) []models.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Ticket{}
	for _, t := range s.byUser[userID] {
		if t.Date != nil && !utils.InRange(*t.Date, from, to) {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// LoadForUser returns one entry per date in [from, to], ordered, each with the tickets dated that day.
func (s *Store) LoadForUser(userID string, from, to time.Time) []Day {
	start, end := utils.Day(from), utils.Day(to)
	tickets := s.TicketsForUser(userID, &start, &end)

	byDate := map[string][]models.Ticket{}
	for _, t := range tickets {
		if t.Date == nil {
			continue
		}
		k := utils.FormatDate(*t.Date)
		byDate[k] = append(byDate[k], t)
	}

	days := []Day{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		k := utils.FormatDate(d)
		list := byDate[k]
		if list == nil {
			list = []models.Ticket{}
		}
		sort.SliceStable(list, func(i, j int) bool { return startOf(list[i]).Before(startOf(list[j])) })
		days = append(days, Day{Date: k, Tickets: list})
	}
	return days
}

func startOf(t models.Ticket) time.Time {
	if t.DateTime != nil {
		return *t.DateTime
	}
	if t.Date != nil {
		return *t.Date
	}
	return time.Time{}
}

// LoadCounts maps each date in [from, to] to the number of tickets the user has that day.
func (s *Store) LoadCounts(userID string, from, to time.Time) map[string]int {
	counts := map[string]int{}
	for _, d := range s.LoadForUser(userID, from, to) {
		counts[d.Date] = len(d.Tickets)
	}
	return counts
}

func (s *Store) Summary() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.byUser))
	for user, tickets := range s.byUser {
		out[user] = len(tickets)
	}
	return out
}

// Seed loads the assigned tickets of a source snapshot and returns how many were placed.
func (s *Store) Seed(tickets []models.Ticket) int {
	n := 0
	for _, t := range tickets {
		if !t.Assigned() {
			continue
		}
		s.Assign(t, t.UserID)
		n++
	}
	return n
}
