package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gmalla/backend/internal/models"
)

var ErrNotFound = errors.New("ticket not found")

// Client talks to the Business Central OData endpoints that own the ticket records.
type Client struct {
	BaseURL        string
	Company        string
	APIKey         string
	Username       string
	Password       string
	IncidencesPath string
	DetailPath     string
	HTTP           *http.Client
}

type Filter struct {
	State    string
	Resource string
	Type     string
	// From is sent verbatim as a Fecha_Hora lower bound.
	From string
}

func (f Filter) odata() string {
	var parts []string
	if f.State != "" {
		parts = append(parts, fmt.Sprintf("Estado eq '%s'", escapeODataString(f.State)))
	}
	if f.Resource != "" {
		parts = append(parts, fmt.Sprintf("Recurso eq '%s'", escapeODataString(f.Resource)))
	}
	if f.Type != "" {
		parts = append(parts, fmt.Sprintf("Tipo_Incidencia eq '%s'", escapeODataString(f.Type)))
	}
	if f.From != "" {
		parts = append(parts, fmt.Sprintf("Fecha_Hora ge %s", f.From))
	}
	return strings.Join(parts, " and ")
}

func escapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 120 * time.Second}
	}
	return c.HTTP
}

func (c *Client) listURL() string {
	base := strings.TrimRight(c.BaseURL, "/")
	return fmt.Sprintf("%s/powerbi/ODataV4/Company('%s')/ListaIncidencias", base, url.PathEscape(c.Company))
}

func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		return
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

// FetchTickets lists tickets, optionally narrowed by an OData filter.
func (c *Client) FetchTickets(ctx context.Context, filter *Filter) ([]models.Ticket, error) {
	u, err := url.Parse(c.listURL())
	if err != nil {
		return nil, errors.Wrap(err, "erp list url")
	}
	if filter != nil {
		if expr := filter.odata(); expr != "" {
			q := u.Query()
			q.Set("$filter", expr)
			u.RawQuery = q.Encode()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "erp list request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("erp list http error: %s", resp.Status)
	}

	var page struct {
		Value []odataTicket `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errors.Wrap(err, "erp list decode")
	}
	out := make([]models.Ticket, 0, len(page.Value))
	for _, rec := range page.Value {
		out = append(out, rec.toTicket())
	}
	return out, nil
}

// FindTicket fetches the list and returns the ticket matching key by business code or task id.
func (c *Client) FindTicket(ctx context.Context, key string) (models.Ticket, error) {
	tickets, err := c.FetchTickets(ctx, nil)
	if err != nil {
		return models.Ticket{}, err
	}
	for _, t := range tickets {
		if t.No == key || (t.GTaskID != "" && t.GTaskID == key) {
			return t, nil
		}
	}
	return models.Ticket{}, ErrNotFound
}

// UpdateTicket pushes user, date and descriptive fields for one ticket.
func (c *Client) UpdateTicket(ctx context.Context, t models.Ticket) error {
	payload, err := buildUpdatePayload(t)
	if err != nil {
		return err
	}
	u, err := url.Parse(c.endpoint(c.IncidencesPath))
	if err != nil {
		return errors.Wrap(err, "erp update url")
	}
	q := u.Query()
	q.Set("company", c.Company)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return errors.Wrapf(err, "erp update %s", t.Key())
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("erp update %s http error: %s: %s", t.Key(), resp.Status, strings.TrimSpace(string(body)))
	}
}

// FetchTicketDetail runs the DetalleIncidencia procedure for a task id.
func (c *Client) FetchTicketDetail(ctx context.Context, gtaskID string) (map[string]any, error) {
	inner, _ := json.Marshal(map[string]string{"IdIncidencia": gtaskID})
	body, _ := json.Marshal(map[string]string{"jsonText": string(inner)})

	u, err := url.Parse(c.endpoint(c.DetailPath))
	if err != nil {
		return nil, errors.Wrap(err, "erp detail url")
	}
	q := u.Query()
	q.Set("company", c.Company)
	q.Set("procedure", "DetalleIncidencia")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "erp detail %s", gtaskID)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("erp detail %s http error: %s", gtaskID, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "erp detail read")
	}
	return decodeDetail(raw)
}

// decodeDetail unwraps the OData envelope whose value is itself a JSON document in a string.
func decodeDetail(raw []byte) (map[string]any, error) {
	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.Wrap(err, "erp detail decode")
	}
	value, ok := envelope["value"]
	if !ok {
		return envelope, nil
	}
	switch v := value.(type) {
	case string:
		cleaned := strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ").Replace(v))
		var detail map[string]any
		if err := json.Unmarshal([]byte(cleaned), &detail); err != nil {
			return nil, errors.Wrap(err, "erp detail value decode")
		}
		return detail, nil
	case map[string]any:
		return v, nil
	default:
		return nil, errors.Errorf("erp detail: unexpected value type %T", value)
	}
}
