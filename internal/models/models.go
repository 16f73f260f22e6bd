package models

import "time"

type TicketState string

const (
	StateOpen       TicketState = "Abierta"
	StateInProgress TicketState = "EnProgreso"
	StateClosed     TicketState = "Cerrada"
)

func (s TicketState) IsOpen() bool {
	return s != StateClosed
}

type ElementType string

const (
	ElementResource ElementType = "Recurso"
	ElementStop     ElementType = "Parada"
)

type Coordinates struct {
	Lat float64 `json:"latitud"`
	Lon float64 `json:"longitud"`
}

type Ticket struct {
	No            string       `json:"no"`
	Description   string       `json:"descripcion"`
	Date          *time.Time   `json:"fecha,omitempty"`
	DateTime      *time.Time   `json:"fecha_hora,omitempty"`
	State         TicketState  `json:"estado"`
	OrderNo       *int         `json:"n_orden,omitempty"`
	GTaskID       string       `json:"id_gtask"`
	Type          string       `json:"tipo_incidencia,omitempty"`
	Resource      string       `json:"recurso"`
	ElementType   ElementType  `json:"tipo_elemento,omitempty"`
	UserID        string       `json:"usuario,omitempty"`
	FirstImageURL string       `json:"url_primera_imagen,omitempty"`
	Coordinates   *Coordinates `json:"coordenadas,omitempty"`
}

// Key is the canonical identifier: the external task id when present, the business code otherwise.
func (t Ticket) Key() string {
	if t.GTaskID != "" {
		return t.GTaskID
	}
	return t.No
}

func (t Ticket) Assigned() bool {
	return t.UserID != ""
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email,omitempty"`
}

type ProposedAssignment struct {
	TicketID  string `json:"incidencia_id"`
	UserID    string `json:"usuario_id"`
	Date      string `json:"fecha,omitempty"`
	StartTime string `json:"hora_inicio,omitempty"`
	Reason    string `json:"razon,omitempty"`
}

type AppliedAssignment struct {
	TicketID  string `json:"incidencia_id"`
	TicketNo  string `json:"incidencia_no"`
	UserID    string `json:"usuario_id"`
	Date      string `json:"fecha"`
	StartTime string `json:"hora_inicio,omitempty"`
}

type Rejection struct {
	Index     int    `json:"index"`
	Reason    string `json:"reason"`
	TicketID  string `json:"incidencia_id"`
	UserID    string `json:"usuario_id"`
	Date      string `json:"fecha,omitempty"`
	StartTime string `json:"hora_inicio,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type PlanOutcome string

const (
	OutcomeNothingToPlan PlanOutcome = "nothing-to-plan"
	OutcomeNoPlan        PlanOutcome = "no-plan"
	OutcomeEmptyPlan     PlanOutcome = "empty-plan"
	OutcomeValidPlan     PlanOutcome = "valid-plan"
)

type PlanResult struct {
	RunID       string               `json:"run_id"`
	Success     bool                 `json:"success"`
	Outcome     PlanOutcome          `json:"outcome,omitempty"`
	Message     string               `json:"message,omitempty"`
	Error       string               `json:"error,omitempty"`
	Proposed    []ProposedAssignment `json:"asignaciones_propuestas"`
	Applied     []AppliedAssignment  `json:"asignaciones_aplicadas"`
	Errors      []string             `json:"errores"`
	Rejected    []Rejection          `json:"rechazadas,omitempty"`
	Duplicates  int                  `json:"duplicados"`
	Unassigned  []string             `json:"sin_asignar,omitempty"`
	RawResponse string               `json:"respuesta_llm,omitempty"`
	Parsed      []map[string]any     `json:"asignaciones_originales,omitempty"`
}
