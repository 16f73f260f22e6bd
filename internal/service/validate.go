package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/utils"
)

// Rejection reasons.
const (
	ReasonMissingID       = "MISSING_ID"
	ReasonPlaceholderID   = "PLACEHOLDER_ID"
	ReasonInvalidDate     = "INVALID_DATE"
	ReasonWrongYear       = "WRONG_YEAR"
	ReasonOutOfRange      = "OUT_OF_RANGE"
	ReasonUnknownTicket   = "UNKNOWN_TICKET"
	ReasonAmbiguousTicket = "AMBIGUOUS_TICKET"
	ReasonUnknownUser     = "UNKNOWN_USER"
	ReasonAmbiguousUser   = "AMBIGUOUS_USER"
)

// placeholderIDs are instruction phrases a solver echoes instead of real identifiers.
var placeholderIDs = map[string]bool{
	"id de la incidencia":     true,
	"id del usuario asignado": true,
	"id del usuario":          true,
	"incidencia_id":           true,
	"usuario_id":              true,
	"id de incidencia":        true,
	"id usuario":              true,
	"valor_real":              true,
	"valor real":              true,
	"campo id":                true,
	"campo_id":                true,
}

var placeholderFragments = []string{"id del", "valor_real"}

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Field aliases accepted on solver output.
var (
	ticketKeys = []string{"incidencia_id", "ticket_id", "id"}
	userKeys   = []string{"usuario_id", "user_id"}
	dateKeys   = []string{"fecha", "date"}
	timeKeys   = []string{"hora_inicio", "start_time", "hora"}
	reasonKeys = []string{"razon", "reason"}
)

type ValidationReport struct {
	Accepted []models.ProposedAssignment
	Rejected []models.Rejection
}

// Validator checks raw solver entries against the candidate pool, the user pool and the plan window.
type Validator struct {
	Config  PlanConfig
	Tickets []models.Ticket
	Users   []models.User
	From    *time.Time
	To      *time.Time
	Now     func() time.Time
	Logger  zerolog.Logger
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Validator) Validate(raw []map[string]any) ValidationReport {
	report := ValidationReport{Accepted: []models.ProposedAssignment{}}
	year := v.now().Year()

	for i, entry := range raw {
		a := models.ProposedAssignment{
			TicketID:  strings.TrimSpace(stringField(entry, ticketKeys...)),
			UserID:    strings.TrimSpace(stringField(entry, userKeys...)),
			Date:      strings.TrimSpace(stringField(entry, dateKeys...)),
			StartTime: strings.TrimSpace(stringField(entry, timeKeys...)),
			Reason:    stringField(entry, reasonKeys...),
		}
		if reason, detail := v.check(&a, year); reason != "" {
			rej := models.Rejection{
				Index:     i,
				Reason:    reason,
				TicketID:  a.TicketID,
				UserID:    a.UserID,
				Date:      a.Date,
				StartTime: a.StartTime,
				Detail:    detail,
			}
			v.Logger.Warn().
				Str("reason", reason).
				Str("ticket_id", rej.TicketID).
				Str("user_id", rej.UserID).
				Str("date", rej.Date).
				Str("start_time", rej.StartTime).
				Str("detail", detail).
				Msg("assignment rejected")
			report.Rejected = append(report.Rejected, rej)
			continue
		}
		report.Accepted = append(report.Accepted, a)
	}
	return report
}

// check runs the per-entry checks in order, repairing a in place. It returns the first failing reason.
// A weekend date is advanced to the next working day and the advanced date must still pass the year
// and range checks, so a Saturday at the end of the visible range is rejected as OUT_OF_RANGE.
func (v *Validator) check(a *models.ProposedAssignment, year int) (string, string) {
	if a.TicketID == "" || a.UserID == "" {
		return ReasonMissingID, "ticket and user ids are required"
	}
	if isPlaceholder(a.TicketID) || isPlaceholder(a.UserID) {
		return ReasonPlaceholderID, "id field holds instruction text"
	}

	if a.Date != "" {
		d, err := utils.ParseDate(a.Date)
		if err != nil {
			return ReasonInvalidDate, err.Error()
		}
		if reason, detail := v.checkDate(d, year); reason != "" {
			return reason, detail
		}
		if !utils.IsWorkingDay(d) {
			next := utils.NextWorkingDay(d)
			if reason, detail := v.checkDate(next, year); reason != "" {
				return reason, "after weekend advance: " + detail
			}
			v.Logger.Info().Str("ticket_id", a.TicketID).Str("from", a.Date).Str("to", utils.FormatDate(next)).Msg("weekend date advanced")
			a.Date = utils.FormatDate(next)
		}
	}

	if a.StartTime != "" {
		start := formatClock(v.Config.WorkStart)
		m, ok := parseClock(a.StartTime)
		switch {
		case !ok:
			v.Logger.Info().Str("ticket_id", a.TicketID).Str("start_time", a.StartTime).Msg("malformed start time reset to window start")
			a.StartTime = start
		case m < v.Config.WorkStart || m > v.Config.WorkEnd:
			v.Logger.Info().Str("ticket_id", a.TicketID).Str("start_time", a.StartTime).Msg("start time outside window clamped")
			a.StartTime = start
		default:
			a.StartTime = formatClock(m)
		}
	}

	key, reason := resolveTicket(a.TicketID, v.Tickets)
	if reason != "" {
		return reason, fmt.Sprintf("ticket %q", a.TicketID)
	}
	if key != a.TicketID {
		v.Logger.Info().Str("from", a.TicketID).Str("to", key).Msg("ticket id normalized")
		a.TicketID = key
	}

	userID, reason := resolveUser(a.UserID, v.Users)
	if reason != "" {
		return reason, fmt.Sprintf("user %q", a.UserID)
	}
	if userID != a.UserID {
		v.Logger.Info().Str("from", a.UserID).Str("to", userID).Msg("user id normalized")
		a.UserID = userID
	}
	return "", ""
}

func (v *Validator) checkDate(d time.Time, year int) (string, string) {
	if d.Year() != year {
		return ReasonWrongYear, fmt.Sprintf("year %d, expected %d", d.Year(), year)
	}
	if !utils.InRange(d, v.From, v.To) {
		return ReasonOutOfRange, fmt.Sprintf("%s outside visible range", utils.FormatDate(d))
	}
	return "", ""
}

func isPlaceholder(id string) bool {
	lower := strings.ToLower(strings.TrimSpace(id))
	if placeholderIDs[lower] {
		return true
	}
	for _, frag := range placeholderFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func parseClock(s string) (int, bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return 0, false
	}
	return h*60 + mm, true
}

// resolveTicket maps a solver reference to a candidate's canonical key. Exact matches on either
// identifier win; otherwise the reference must be contained in, or contain, exactly one ticket's identifier.
func resolveTicket(ref string, tickets []models.Ticket) (string, string) {
	for _, t := range tickets {
		if t.GTaskID == ref || t.No == ref {
			return t.Key(), ""
		}
	}
	var found []string
	for _, t := range tickets {
		if fuzzyMatch(ref, t.GTaskID) || fuzzyMatch(ref, t.No) {
			found = appendUnique(found, t.Key())
		}
	}
	switch len(found) {
	case 0:
		return "", ReasonUnknownTicket
	case 1:
		return found[0], ""
	default:
		return "", ReasonAmbiguousTicket
	}
}

func resolveUser(ref string, users []models.User) (string, string) {
	for _, u := range users {
		if u.ID == ref {
			return u.ID, ""
		}
	}
	var found []string
	for _, u := range users {
		if fuzzyMatch(ref, u.ID) {
			found = appendUnique(found, u.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", ReasonUnknownUser
	case 1:
		return found[0], ""
	default:
		return "", ReasonAmbiguousUser
	}
}

func fuzzyMatch(ref, id string) bool {
	if ref == "" || id == "" {
		return false
	}
	return strings.Contains(id, ref) || strings.Contains(ref, id)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// stringField returns the first present alias as a string; numeric ids are rendered without exponent.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}
