package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/garderoba/internal/auth"
	"github.com/erazemk/garderoba/internal/db"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/outfit"
	"github.com/erazemk/garderoba/internal/planner"
	"github.com/erazemk/garderoba/internal/store"
	"github.com/erazemk/garderoba/internal/weather"
)

type noWeather struct{}

func (noWeather) Current(context.Context, weather.Location) weather.Report {
	return weather.Report{Description: weather.DescriptionNoKey}
}

func setupWebServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	database := db.NewTestDB(t)

	clock := func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }
	plans := &planner.Planner{
		DB:             database,
		Weather:        noWeather{},
		Generator:      outfit.NewGenerator(outfit.WithClock(clock)),
		Count:          3,
		DefaultPurpose: model.PurposeUniversity,
		Now:            clock,
	}
	router, err := NewRouter(database, auth.NewTokens("web-secret", time.Hour), plans)
	if err != nil {
		t.Fatalf("creating router: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	hash, _ := auth.HashPassword("password")
	if _, err := store.CreateUser(context.Background(), database, "admin", hash, model.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}

	jar, _ := cookiejar.New(nil)
	return server, &http.Client{Jar: jar}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

func TestLoadTemplates(t *testing.T) {
	if _, err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
}

func TestUnauthenticatedRedirect(t *testing.T) {
	server, _ := setupWebServer(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(server.URL + "/closet")
	if err != nil {
		t.Fatalf("GET /closet: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Errorf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestLoginAndBrowse(t *testing.T) {
	server, client := setupWebServer(t)

	resp, err := client.PostForm(server.URL+"/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	if body := readBody(t, resp); resp.StatusCode != http.StatusUnauthorized || !strings.Contains(body, "Wrong username or password") {
		t.Errorf("expected login error, got %d", resp.StatusCode)
	}

	resp, err = client.PostForm(server.URL+"/login", url.Values{"username": {"admin"}, "password": {"password"}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Suggestions") {
		t.Fatalf("expected dashboard after login, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, outfit.MessageUnavailable) {
		t.Errorf("dashboard does not show the unavailable temperature message")
	}

	resp, err = client.PostForm(server.URL+"/closet", url.Values{
		"category":    {"top"},
		"subcategory": {"short_sleeve"},
		"color":       {"white"},
		"purposes":    {"work", "date"},
	})
	if err != nil {
		t.Fatalf("POST /closet: %v", err)
	}
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Wear history") {
		t.Fatalf("expected edit page after create, got %d", resp.StatusCode)
	}

	resp, err = client.PostForm(server.URL+"/closet", url.Values{
		"category":    {"bottom"},
		"subcategory": {"short_sleeve"},
		"color":       {"blue"},
		"purposes":    {"work"},
	})
	if err != nil {
		t.Fatalf("POST /closet: %v", err)
	}
	if body := readBody(t, resp); resp.StatusCode != http.StatusBadRequest || !strings.Contains(body, "valid category") {
		t.Errorf("expected validation error, got %d", resp.StatusCode)
	}

	resp, err = client.Get(server.URL + "/closet")
	if err != nil {
		t.Fatalf("GET /closet: %v", err)
	}
	if body := readBody(t, resp); !strings.Contains(body, "Short sleeve") || !strings.Contains(body, "Date, Work") {
		t.Errorf("closet page missing the new item")
	}

	for _, path := range []string{"/calendar", "/calendar/new", "/closet/new", "/users", "/settings"} {
		resp, err := client.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
	}
}

func TestScheduleConflictShowsError(t *testing.T) {
	server, client := setupWebServer(t)
	resp, err := client.PostForm(server.URL+"/login", url.Values{"username": {"admin"}, "password": {"password"}})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()

	form := url.Values{"date": {"2024-06-11"}, "purpose": {"work"}, "memo": {"standup"}}
	resp, err = client.PostForm(server.URL+"/calendar", form)
	if err != nil {
		t.Fatalf("POST /calendar: %v", err)
	}
	if body := readBody(t, resp); !strings.Contains(body, "standup") {
		t.Errorf("calendar does not list the new plan")
	}

	resp, err = client.PostForm(server.URL+"/calendar", form)
	if err != nil {
		t.Fatalf("POST /calendar: %v", err)
	}
	if body := readBody(t, resp); resp.StatusCode != http.StatusConflict || !strings.Contains(body, "already a plan") {
		t.Errorf("expected conflict, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesCookie(t *testing.T) {
	server, client := setupWebServer(t)
	resp, err := client.PostForm(server.URL+"/login", url.Values{"username": {"admin"}, "password": {"password"}})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()

	u, _ := url.Parse(server.URL)
	stolen := client.Jar.Cookies(u)

	resp, err = client.PostForm(server.URL+"/logout", nil)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	resp.Body.Close()

	replay := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	req, _ := http.NewRequest("GET", server.URL+"/closet", nil)
	for _, c := range stolen {
		req.AddCookie(c)
	}
	resp, err = replay.Do(req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("revoked cookie still accepted: %d", resp.StatusCode)
	}
}
