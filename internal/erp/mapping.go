package erp

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/utils"
)

const zeroDateTime = "0001-01-01T00:00:00Z"

type odataTicket struct {
	No            string `json:"No"`
	Description   string `json:"Descripción"`
	Resource      string `json:"Recurso"`
	Type          string `json:"Tipo_Incidencia"`
	State         string `json:"Estado"`
	DateTime      string `json:"Fecha_Hora"`
	GTaskID       string `json:"Id_Gtask"`
	UserGTaskTypo string `json:"Id_Uduario_Gtask"`
	UserGTask     string `json:"Id_Usuario_Gtask"`
	FirstImageURL string `json:"URL_Primera_Imagen"`
	ElementType   string `json:"Tipo_Elemento"`
	OrderNo       *int   `json:"Nº_Orden"`
}

func (o odataTicket) toTicket() models.Ticket {
	t := models.Ticket{
		No:            o.No,
		Description:   o.Description,
		Resource:      o.Resource,
		Type:          o.Type,
		State:         parseState(o.State),
		GTaskID:       o.GTaskID,
		FirstImageURL: o.FirstImageURL,
		OrderNo:       o.OrderNo,
		ElementType:   models.ElementResource,
	}
	if o.ElementType == string(models.ElementStop) {
		t.ElementType = models.ElementStop
	}

	user := o.UserGTaskTypo
	if strings.TrimSpace(user) == "" {
		user = o.UserGTask
	}
	t.UserID = strings.TrimSpace(user)

	if o.DateTime != "" && o.DateTime != zeroDateTime {
		// The calendar date is the literal date part; no zone conversion.
		if len(o.DateTime) >= 10 {
			if d, err := utils.ParseDate(o.DateTime[:10]); err == nil {
				t.Date = &d
			}
		}
		if dt, ok := parseDateTime(o.DateTime); ok {
			t.DateTime = &dt
		}
	}
	return t
}

func parseState(s string) models.TicketState {
	switch s {
	case string(models.StateInProgress):
		return models.StateInProgress
	case string(models.StateClosed):
		return models.StateClosed
	default:
		return models.StateOpen
	}
}

func parseDateTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if dt, err := time.Parse(layout, s); err == nil {
			return dt, true
		}
	}
	return time.Time{}, false
}

func stateCode(s models.TicketState) string {
	switch s {
	case models.StateInProgress:
		return "IN_PROGRESS"
	case models.StateClosed:
		return "CLOSED"
	default:
		return "PENDING"
	}
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlEntities = strings.NewReplacer("&nbsp;", " ", "&lt;", "<", "&gt;", ">", "&amp;", "&")
)

func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = htmlTagRe.ReplaceAllString(s, "")
	s = htmlEntities.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func formatDateTime(t models.Ticket) *string {
	var out string
	switch {
	case t.DateTime != nil:
		out = t.DateTime.Format("2006-01-02T15:04:05")
	case t.Date != nil:
		out = utils.FormatDate(*t.Date) + "T00:00:00"
	default:
		return nil
	}
	return &out
}

type updateRecord struct {
	ID            string   `json:"_id"`
	State         string   `json:"state"`
	IncidenceType string   `json:"incidenceType"`
	Observation   string   `json:"observation"`
	Description   string   `json:"description"`
	Resource      string   `json:"resource"`
	User          string   `json:"user"`
	DateTime      *string  `json:"fechahora"`
	Image         []string `json:"image"`
	Audio         []string `json:"audio"`
}

// buildUpdatePayload wraps the update record as a JSON string under jsonText.
func buildUpdatePayload(t models.Ticket) ([]byte, error) {
	id := t.Key()
	if id == "" {
		return nil, ErrNotFound
	}
	desc := cleanHTML(t.Description)
	rec := updateRecord{
		ID:            id,
		State:         stateCode(t.State),
		IncidenceType: t.Type,
		Observation:   desc,
		Description:   desc,
		Resource:      t.Resource,
		User:          t.UserID,
		DateTime:      formatDateTime(t),
		Image:         []string{},
		Audio:         []string{},
	}
	inner, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"jsonText": string(inner)})
}
