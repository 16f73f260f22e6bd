package gtask

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/models"
)

var (
	ErrUnauthorized = errors.New("gtask: invalid credentials")
	ErrUserNotFound = errors.New("gtask: user not found")
)

// Session is the authenticated state against the directory. The zero value is logged out.
type Session struct {
	mu       sync.RWMutex
	token    string
	username string
	user     map[string]any
}

func (s *Session) set(token, username string, user map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.username = username
	s.user = user
}

func (s *Session) Clear() {
	s.set("", "", nil)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

type SessionInfo struct {
	Authenticated bool           `json:"authenticated"`
	Username      string         `json:"username,omitempty"`
	User          map[string]any `json:"user,omitempty"`
}

func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{Authenticated: s.token != "", Username: s.username, User: s.user}
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Cache   UserCache
	Session *Session
	Logger  zerolog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, cache UserCache, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Cache:   cache,
		Session: &Session{},
		Logger:  logger,
	}
}

var tokenKeys = []string{"token", "access_token", "auth_token"}

// Login authenticates and stores the token on the client's session.
func (c *Client) Login(ctx context.Context, username, password string) (SessionInfo, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/user/login", bytes.NewReader(body))
	if err != nil {
		return SessionInfo{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return SessionInfo{}, errors.Wrap(err, "gtask login")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return SessionInfo{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return SessionInfo{}, errors.Errorf("gtask login: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return SessionInfo{}, errors.Wrap(err, "gtask login: decode")
	}

	token := ""
	for _, k := range tokenKeys {
		if s, ok := data[k].(string); ok && s != "" {
			token = s
			break
		}
	}
	user := loginUser(data, token != "")

	c.Session.set(token, username, user)
	c.InvalidateUsers(ctx)
	c.Logger.Info().Str("username", username).Bool("token", token != "").Msg("gtask login")
	return c.Session.Info(), nil
}

func loginUser(data map[string]any, hasToken bool) map[string]any {
	for _, k := range []string{"user", "user_data", "data"} {
		if m, ok := data[k].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	if !hasToken {
		return data
	}
	rest := make(map[string]any, len(data))
	for k, v := range data {
		if k == "token" || k == "access_token" || k == "auth_token" {
			continue
		}
		rest[k] = v
	}
	return rest
}

func (c *Client) Logout() {
	c.Session.Clear()
}

func (c *Client) Status() SessionInfo {
	return c.Session.Info()
}

// ListUsers returns the directory sorted by lower-cased name, served from cache while fresh.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	if c.Cache != nil {
		if users, ok := c.Cache.Get(ctx); ok {
			return users, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/users", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "gtask users")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("gtask users: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "gtask users: read")
	}
	users, err := decodeUsers(raw)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, users); err != nil {
			c.Logger.Warn().Err(err).Msg("users cache write failed")
		}
	}
	c.Logger.Debug().Int("count", len(users)).Msg("users fetched from directory")
	return users, nil
}

func (c *Client) InvalidateUsers(ctx context.Context) {
	if c.Cache == nil {
		return
	}
	if err := c.Cache.Invalidate(ctx); err != nil {
		c.Logger.Warn().Err(err).Msg("users cache invalidate failed")
	}
}

func (c *Client) UserByID(ctx context.Context, id string) (models.User, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, errors.Wrapf(ErrUserNotFound, "id %s", id)
}

func decodeUsers(raw []byte) ([]models.User, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapped struct {
			Users []map[string]any `json:"users"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, errors.Wrap(err, "gtask users: decode")
		}
		items = wrapped.Users
	}

	users := make([]models.User, 0, len(items))
	for _, item := range items {
		u := models.User{
			ID:    firstString(item, "id", "_id", "Id", "user_id", "userId"),
			Name:  firstString(item, "name", "username", "nombre"),
			Email: firstString(item, "email"),
		}
		if u.ID == "" {
			continue
		}
		users = append(users, u)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	return users, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
