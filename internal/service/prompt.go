package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/ai"
	"github.com/gmalla/backend/internal/calendar"
	"github.com/gmalla/backend/internal/geocode"
	"github.com/gmalla/backend/internal/models"
	"github.com/gmalla/backend/internal/utils"
)

const (
	descriptionLimit = 200
	nearbyLimit      = 3
	promptUserIDs    = 10
)

const SystemPrompt = "Eres un experto en optimización de rutas y asignación de tareas de mantenimiento. Responde siempre en formato JSON válido."

// CalendarView is the read side of the calendar store used for load signals.
type CalendarView interface {
	LoadForUser(userID string, from, to time.Time) []calendar.Day
}

type PromptTicket struct {
	ID           string              `json:"id"`
	No           string              `json:"no"`
	Resource     string              `json:"recurso"`
	Type         string              `json:"tipo_incidencia"`
	Description  string              `json:"descripcion"`
	OriginalDate *string             `json:"fecha_original"`
	Coordinates  *models.Coordinates `json:"coordenadas"`
	Nearby       []Nearby            `json:"cercanas,omitempty"`
}

// Nearby is a precomputed travel estimate to another candidate ticket.
type Nearby struct {
	ID            string  `json:"id"`
	DistanceKm    float64 `json:"distancia_km"`
	TravelMinutes int     `json:"minutos_desplazamiento"`
	TotalMinutes  int     `json:"minutos_totales"`
}

type PromptUser struct {
	ID   string `json:"id"`
	Name string `json:"nombre"`
}

type PromptConfig struct {
	DailyHours     float64 `json:"horas_trabajo_diarias"`
	MinMinutes     int     `json:"tiempo_minimo_resolucion"`
	StartClock     string  `json:"hora_inicio"`
	EndClock       string  `json:"hora_fin"`
	SpeedKmh       float64 `json:"velocidad_media_kmh"`
	ExcludeWeekend bool    `json:"excluir_fines_semana"`
	From           *string `json:"fecha_inicio"`
	To             *string `json:"fecha_fin"`
}

// PlanContext is the structured payload embedded in the prompt.
type PlanContext struct {
	Tickets  []PromptTicket            `json:"incidencias"`
	Users    []PromptUser              `json:"usuarios"`
	Calendar map[string]map[string]int `json:"calendario_usuarios"`
	Config   PromptConfig              `json:"configuracion"`
}

type PromptBuilder struct {
	Locator  geocode.Locator
	Calendar CalendarView
	Config   PlanConfig
	Now      func() time.Time
	Logger   zerolog.Logger
}

func (b *PromptBuilder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// FilterUsers keeps users in the allow-list; an empty list keeps everyone.
func FilterUsers(users []models.User, allow []string) []models.User {
	if len(allow) == 0 {
		return users
	}
	set := map[string]bool{}
	for _, id := range allow {
		set[id] = true
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if set[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

func (b *PromptBuilder) BuildContext(ctx context.Context, tickets []models.Ticket, users []models.User, from, to *time.Time) PlanContext {
	pc := PlanContext{
		Tickets:  make([]PromptTicket, 0, len(tickets)),
		Users:    make([]PromptUser, 0, len(users)),
		Calendar: map[string]map[string]int{},
	}

	for _, t := range tickets {
		pt := PromptTicket{
			ID:          t.Key(),
			No:          t.No,
			Resource:    t.Resource,
			Type:        t.Type,
			Description: truncateRunes(t.Description, descriptionLimit),
			Coordinates: t.Coordinates,
		}
		if t.Date != nil {
			d := utils.FormatDate(*t.Date)
			pt.OriginalDate = &d
		}
		if pt.Coordinates == nil && b.Locator != nil {
			coords, err := b.Locator.Locate(ctx, t)
			if err != nil {
				b.Logger.Warn().Err(err).Str("ticket", t.No).Msg("coordinates unavailable")
			}
			pt.Coordinates = coords
		}
		pc.Tickets = append(pc.Tickets, pt)
	}
	b.attachNearby(pc.Tickets)

	today := utils.Day(b.now())
	horizon := today.AddDate(0, 0, b.Config.LookaheadDays)
	for _, u := range users {
		pc.Users = append(pc.Users, PromptUser{ID: u.ID, Name: u.Name})
		if b.Calendar == nil {
			continue
		}
		load := map[string]int{}
		for _, d := range b.Calendar.LoadForUser(u.ID, today, horizon) {
			load[d.Date] = len(d.Tickets)
		}
		pc.Calendar[u.ID] = load
	}

	pc.Config = PromptConfig{
		DailyHours:     b.Config.DailyHours(),
		MinMinutes:     b.Config.MinMinutes,
		StartClock:     formatClock(b.Config.WorkStart),
		EndClock:       formatClock(b.Config.WorkEnd),
		SpeedKmh:       b.Config.SpeedKmh,
		ExcludeWeekend: true,
	}
	if from != nil {
		s := utils.FormatDate(*from)
		pc.Config.From = &s
	}
	if to != nil {
		s := utils.FormatDate(*to)
		pc.Config.To = &s
	}
	return pc
}

// attachNearby lists, per located ticket, the closest other located tickets with travel estimates.
func (b *PromptBuilder) attachNearby(tickets []PromptTicket) {
	speed := b.Config.SpeedKmh
	if speed <= 0 {
		speed = utils.DefaultSpeedKmh
	}
	for i := range tickets {
		a := tickets[i].Coordinates
		if a == nil {
			continue
		}
		var near []Nearby
		for j := range tickets {
			o := tickets[j].Coordinates
			if i == j || o == nil {
				continue
			}
			d := utils.DistanceKm(a.Lat, a.Lon, o.Lat, o.Lon)
			travel := utils.TravelMinutesAt(d, speed)
			near = append(near, Nearby{
				ID:            tickets[j].ID,
				DistanceKm:    math.Round(d*10) / 10,
				TravelMinutes: travel,
				TotalMinutes:  utils.TicketMinutes(b.Config.MinMinutes, travel),
			})
		}
		sort.SliceStable(near, func(x, y int) bool { return near[x].DistanceKm < near[y].DistanceKm })
		if len(near) > nearbyLimit {
			near = near[:nearbyLimit]
		}
		tickets[i].Nearby = near
	}
}

// exampleDate is the first working day of the visible range, or today's working day without one.
func (b *PromptBuilder) exampleDate(pc PlanContext) string {
	if pc.Config.From != nil && pc.Config.To != nil {
		from, err1 := utils.ParseDate(*pc.Config.From)
		to, err2 := utils.ParseDate(*pc.Config.To)
		if err1 == nil && err2 == nil {
			d := utils.WorkingDayOnOrAfter(from)
			if d.After(to) {
				d = from
			}
			return utils.FormatDate(d)
		}
	}
	return utils.FormatDate(utils.WorkingDayOnOrAfter(b.now()))
}

func (b *PromptBuilder) RenderPrompt(pc PlanContext) (string, error) {
	ticketsJSON, err := json.MarshalIndent(pc.Tickets, "", "  ")
	if err != nil {
		return "", err
	}
	usersJSON, err := json.MarshalIndent(pc.Users, "", "  ")
	if err != nil {
		return "", err
	}
	calendarJSON, err := json.MarshalIndent(pc.Calendar, "", "  ")
	if err != nil {
		return "", err
	}
	configJSON, err := json.MarshalIndent(pc.Config, "", "  ")
	if err != nil {
		return "", err
	}

	year := b.now().Year()
	cfg := pc.Config
	slots := b.Config.Slots()
	firstSlot, secondSlot := cfg.StartClock, cfg.StartClock
	if len(slots) > 0 {
		firstSlot = slots[0]
		secondSlot = slots[0]
	}
	if len(slots) > 1 {
		secondSlot = slots[1]
	}

	exampleTicket, exampleUser := "", ""
	if len(pc.Tickets) > 0 {
		exampleTicket = pc.Tickets[0].ID
	}
	if len(pc.Users) > 0 {
		exampleUser = pc.Users[0].ID
	}

	rangeRule := fmt.Sprintf("IMPORTANTE: Usa el año %d (año actual). NO uses años anteriores.", year)
	dateRule := fmt.Sprintf("DEBE usar el año %d (año actual).", year)
	if cfg.From != nil && cfg.To != nil {
		rangeRule = fmt.Sprintf("IMPORTANTE: Las fechas DEBEN estar en el rango %s a %s (año %d).", *cfg.From, *cfg.To, year)
		dateRule += fmt.Sprintf(" DEBE estar entre %s y %s.", *cfg.From, *cfg.To)
	}

	var ids []string
	for i, u := range pc.Users {
		if i == promptUserIDs {
			break
		}
		name := u.Name
		if name == "" {
			name = "Sin nombre"
		}
		ids = append(ids, fmt.Sprintf("  - %s (%s)", u.ID, name))
	}
	idList := "  (ninguno disponible)"
	if len(ids) > 0 {
		idList = strings.Join(ids, "\n")
	}

	var sb strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&sb, format, args...) }

	w("Eres un asistente experto en asignación automática de incidencias de mantenimiento.\n\n")
	w("TAREA:\nAsignar %d incidencias a %d usuarios disponibles, considerando:\n\n", len(pc.Tickets), len(pc.Users))
	w("RESTRICCIONES:\n")
	w("1. Cada equipo tiene %s horas de trabajo diarias (%s a %s)\n", formatHours(cfg.DailyHours), cfg.StartClock, cfg.EndClock)
	w("2. CRÍTICO: Debes asignar TODAS las incidencias, pero CADA incidencia SOLO UNA VEZ. No dupliques asignaciones.\n")
	w("3. Tiempo mínimo para resolver cada incidencia: %d minutos\n", cfg.MinMinutes)
	w("4. Debes considerar el tiempo de desplazamiento entre incidencias del mismo usuario y día (velocidad media %s km/h; el campo \"cercanas\" trae distancias y minutos ya calculados)\n", formatHours(cfg.SpeedKmh))
	w("5. Excluir sábados y domingos (solo días laborales)\n")
	w("6. Puedes adelantar la fecha de una incidencia para agruparlas en el mismo día si es eficiente\n")
	w("7. Puedes atrasar la fecha si todos los equipos están ocupados\n")
	w("8. Ordenar incidencias por proximidad geográfica para minimizar desplazamientos. Las incidencias sin coordenadas se reparten equitativamente entre los usuarios.\n")
	w("%s\n\n", rangeRule)

	w("%s\n%s\n\n", ai.SectionTickets, ticketsJSON)
	w("%s\n%s\n\n", ai.SectionUsers, usersJSON)
	w("CALENDARIO ACTUAL (incidencias ya asignadas por usuario y fecha):\n%s\n\n", calendarJSON)
	w("%s\n%s\n\n", ai.SectionConfig, configJSON)

	w("INSTRUCCIONES:\n")
	w("1. Analiza las coordenadas de cada incidencia\n")
	w("2. Usa las distancias y tiempos de desplazamiento entre incidencias\n")
	w("3. Agrupa incidencias cercanas para el mismo usuario en el mismo día\n")
	w("4. Considera la carga de trabajo actual de cada usuario (ver CALENDARIO ACTUAL)\n")
	w("5. Asigna fechas en días laborales y dentro del horario de trabajo\n")
	w("6. Si una incidencia no tiene coordenadas, distribúyela equitativamente entre los usuarios disponibles\n\n")

	w("RESPUESTA REQUERIDA (JSON):\n")
	w("CRÍTICO: Usa SOLO los IDs REALES que aparecen en la lista de USUARIOS DISPONIBLES.\n")
	w("CRÍTICO: Asigna TODAS las %d incidencias, CADA una SOLO UNA VEZ en el array de asignaciones.\n", len(pc.Tickets))
	w("NO inventes IDs, NO uses UUIDs de ejemplo, NO uses texto descriptivo en los campos de ID.\n")
	w("NO repitas el mismo incidencia_id en varias asignaciones.\n\n")
	w("IDs de usuarios disponibles (primeros %d):\n%s\n\n", promptUserIDs, idList)

	w("Formato de respuesta:\n")
	w("{\n  \"asignaciones\": [\n    {\n")
	w("      \"incidencia_id\": \"<id o no de una incidencia de la lista>\",\n")
	w("      \"usuario_id\": \"<id de un usuario de la lista>\",\n")
	w("      \"fecha\": \"YYYY-MM-DD\",\n      \"hora_inicio\": \"HH:MM\",\n")
	w("      \"razon\": \"Breve explicación de la asignación\"\n    }\n  ]\n}\n\n")

	w("EJEMPLO REAL usando datos de arriba:\n")
	w("{\n  \"asignaciones\": [\n    {\n")
	w("      \"incidencia_id\": %q,\n      \"usuario_id\": %q,\n", exampleTicket, exampleUser)
	w("      \"fecha\": %q,\n      \"hora_inicio\": %q,\n", b.exampleDate(pc), firstSlot)
	w("      \"razon\": \"Incidencia cercana a otras asignadas al mismo usuario\"\n    }\n  ]\n}\n\n")

	w("REGLAS CRÍTICAS PARA FECHAS Y HORAS:\n")
	w("- fecha: formato YYYY-MM-DD. %s\n", dateRule)
	w("- hora_inicio: formato HH:MM, repartida a lo largo del día entre %s y %s.\n", cfg.StartClock, cfg.EndClock)
	w("  Horas disponibles: %s\n", strings.Join(slots, ", "))
	w("  NO asignes todas las incidencias a la misma hora (%s). Primera incidencia a %s, segunda a %s, etc.\n", firstSlot, firstSlot, secondSlot)
	w("  Si un usuario tiene varias incidencias el mismo día, sepáralas al menos %d minutos más el desplazamiento.\n", cfg.MinMinutes)
	w("- Solo días laborales (lunes a viernes, NO sábados ni domingos).\n\n")

	w("REGLAS CRÍTICAS PARA IDs:\n")
	w("- incidencia_id: valor exacto del campo \"id\" o \"no\" de una incidencia de la lista.\n")
	w("- usuario_id: valor exacto del campo \"id\" de un usuario de USUARIOS DISPONIBLES.\n")
	w("  NO uses UUIDs inventados como \"550e8400-e29b-41d4-a716-446655440000\".\n\n")
	w("Responde SOLO con un objeto JSON con la clave \"asignaciones\", sin texto adicional antes o después.")

	return sb.String(), nil
}

func formatHours(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
