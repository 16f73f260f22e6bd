package gtask

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "ana" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "name": "Ana"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())
	info, err := c.Login(context.Background(), "ana", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !info.Authenticated || c.Session.Token() != "tok-1" {
		t.Fatalf("expected session token, got %+v", info)
	}
	if info.User["name"] != "Ana" {
		t.Fatalf("expected remaining fields as user data, got %v", info.User)
	}
	if _, ok := info.User["access_token"]; ok {
		t.Fatalf("token must not leak into user data")
	}

	c.Logout()
	if c.Session.Authenticated() {
		t.Fatalf("expected logged out")
	}
}

func TestLoginUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())
	if _, err := c.Login(context.Background(), "x", "y"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestListUsersNormalizesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.Header.Get("Authorization"); got != "" {
			t.Fatalf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"users":[
			{"_id":"u2","username":"bruno"},
			{"userId":"u1","nombre":"Ana"},
			{"name":"sin id"},
			{"id":"u3","name":"carla","email":"c@x.es"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), NewMemoryUserCache(time.Hour), zerolog.Nop())

	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[0].ID != "u1" || users[1].ID != "u2" || users[2].Email != "c@x.es" {
		t.Fatalf("unexpected order or mapping: %+v", users)
	}

	if _, err := c.ListUsers(context.Background()); err != nil {
		t.Fatalf("cached list: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cache hit, got %d calls", calls)
	}

	c.InvalidateUsers(context.Background())
	u, err := c.UserByID(context.Background(), "u3")
	if err != nil || u.Name != "carla" {
		t.Fatalf("user by id: %+v %v", u, err)
	}
	if calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", calls)
	}
	if _, err := c.UserByID(context.Background(), "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListUsersBareListWithToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"Id":"a","name":"Zoe"},{"user_id":7,"name":"alba"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())
	if _, err := c.ListUsers(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized without token, got %v", err)
	}
	c.Session.set("tok", "ana", nil)
	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 || users[0].ID != "7" || users[1].ID != "a" {
		t.Fatalf("unexpected users: %+v", users)
	}
}
