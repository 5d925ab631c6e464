package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
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

var testNow = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

type staticWeather struct {
	report weather.Report
}

func (s staticWeather) Current(context.Context, weather.Location) weather.Report {
	return s.report
}

func hot() weather.Report {
	t := 31.0
	return weather.Report{Temperature: &t, City: "Tokyo", Description: "clear sky", Available: true}
}

type testServer struct {
	*httptest.Server
	db *sql.DB
}

func setupTestServer(t *testing.T) (*testServer, string) {
	t.Helper()
	database := db.NewTestDB(t)

	clock := func() time.Time { return testNow }
	plans := &planner.Planner{
		DB:             database,
		Weather:        staticWeather{report: hot()},
		Generator:      outfit.NewGenerator(outfit.WithClock(clock), outfit.WithSource(rand.NewPCG(7, 7))),
		Count:          3,
		DefaultPurpose: model.PurposeUniversity,
		Now:            clock,
	}
	tokens := auth.NewTokens("test-secret", time.Hour)
	server := httptest.NewServer(NewRouter(database, tokens, plans))
	t.Cleanup(server.Close)

	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), database, "admin", hash, model.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}

	ts := &testServer{Server: server, db: database}
	return ts, ts.login(t, "admin", "password")
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	if _, err := time.Parse(time.RFC3339, loginResp.ExpiresAt); err != nil {
		t.Errorf("expires_at not RFC 3339: %q", loginResp.ExpiresAt)
	}
	return loginResp.Token
}

// do sends an authenticated JSON request and decodes the response into out
// when out is non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func newClothing(category, subcategory, color string, purposes ...string) map[string]any {
	return map[string]any{
		"category":    category,
		"subcategory": subcategory,
		"color":       color,
		"purposes":    purposes,
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedRequest(t *testing.T) {
	server, _ := setupTestServer(t)

	if status := server.do(t, "GET", "/api/clothing", "", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", status)
	}
	if status := server.do(t, "GET", "/api/clothing", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", status)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	if status := server.do(t, "POST", "/api/auth/logout", token, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", status)
	}
	if status := server.do(t, "GET", "/api/clothing", token, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", status)
	}
}

func TestAdminOnlyEndpoints(t *testing.T) {
	server, adminToken := setupTestServer(t)

	status := server.do(t, "POST", "/api/users", adminToken, map[string]string{
		"username": "bob",
		"password": "bobspassword",
		"role":     model.RoleUser,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 creating user, got %d", status)
	}

	userToken := server.login(t, "bob", "bobspassword")
	if status := server.do(t, "GET", "/api/users", userToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", status)
	}
	if status := server.do(t, "GET", "/api/clothing", userToken, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 for own closet, got %d", status)
	}
}

func TestClothingAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	var created model.Clothing
	status := server.do(t, "POST", "/api/clothing", token,
		newClothing("top", "short_sleeve", "white", "work", "university"), &created)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if created.Kind != model.KindShortSleeve {
		t.Errorf("kind = %v, want %v", created.Kind, model.KindShortSleeve)
	}
	if len(created.Purposes) != 2 || created.Purposes[0] != "university" {
		t.Errorf("purposes not normalized: %v", created.Purposes)
	}

	// Subcategory must belong to the category.
	status = server.do(t, "POST", "/api/clothing", token, newClothing("bottom", "short_sleeve", "blue", "work"), nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for mismatched subcategory, got %d", status)
	}
	status = server.do(t, "POST", "/api/clothing", token, newClothing("bottom", "long", "blue"), nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 without purposes, got %d", status)
	}

	var updated model.Clothing
	status = server.do(t, "PUT", "/api/clothing/"+created.ID, token,
		newClothing("top", "long_sleeve_light", "navy", "date"), &updated)
	if status != http.StatusOK {
		t.Fatalf("expected 200 updating, got %d", status)
	}
	if updated.Color != "navy" || updated.Kind != model.KindLongSleeveLight {
		t.Errorf("update not applied: %+v", updated)
	}

	var tops []model.Clothing
	server.do(t, "GET", "/api/clothing?category=top", token, nil, &tops)
	if len(tops) != 1 {
		t.Errorf("expected 1 top, got %d", len(tops))
	}
	if status := server.do(t, "GET", "/api/clothing?category=shoes", token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown category, got %d", status)
	}

	if status := server.do(t, "DELETE", "/api/clothing/"+created.ID, token, nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", status)
	}
	if status := server.do(t, "GET", "/api/clothing/"+created.ID, token, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}
}

func TestClosetIsPerUser(t *testing.T) {
	server, adminToken := setupTestServer(t)

	var item model.Clothing
	server.do(t, "POST", "/api/clothing", adminToken, newClothing("bottom", "long", "black", "work"), &item)

	server.do(t, "POST", "/api/users", adminToken, map[string]string{
		"username": "carol", "password": "carolspassword", "role": model.RoleUser,
	}, nil)
	other := server.login(t, "carol", "carolspassword")

	if status := server.do(t, "GET", "/api/clothing/"+item.ID, other, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for another user's item, got %d", status)
	}
	if status := server.do(t, "DELETE", "/api/clothing/"+item.ID, other, nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 deleting another user's item, got %d", status)
	}
}

func TestScheduleAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	var s model.Schedule
	status := server.do(t, "POST", "/api/schedules", token, map[string]string{
		"date": "2024-06-12", "purpose": "date", "memo": "dinner",
	}, &s)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	status = server.do(t, "POST", "/api/schedules", token, map[string]string{
		"date": "2024-06-12", "purpose": "work",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 for duplicate date, got %d", status)
	}
	status = server.do(t, "POST", "/api/schedules", token, map[string]string{
		"date": "2024-06-13", "purpose": "gym",
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown purpose, got %d", status)
	}

	server.do(t, "POST", "/api/schedules", token, map[string]string{"date": "2024-06-01", "purpose": "work"}, nil)

	var upcoming, past []map[string]any
	server.do(t, "GET", "/api/schedules", token, nil, &upcoming)
	server.do(t, "GET", "/api/schedules?when=past", token, nil, &past)
	if len(upcoming) != 1 || upcoming[0]["date"] != "2024-06-12" {
		t.Errorf("unexpected upcoming schedules: %v", upcoming)
	}
	if len(past) != 1 || past[0]["date"] != "2024-06-01" {
		t.Errorf("unexpected past schedules: %v", past)
	}

	status = server.do(t, "PUT", "/api/schedules/"+s.ID, token, map[string]string{
		"date": "2024-06-01", "purpose": "work",
	}, nil)
	if status != http.StatusConflict {
		t.Errorf("expected 409 moving onto a taken date, got %d", status)
	}

	if status := server.do(t, "DELETE", "/api/schedules/"+s.ID, token, nil, nil); status != http.StatusOK {
		t.Errorf("expected 200 deleting schedule, got %d", status)
	}
}

func TestSuggestionsAndWear(t *testing.T) {
	server, token := setupTestServer(t)

	var top, bottom model.Clothing
	server.do(t, "POST", "/api/clothing", token, newClothing("top", "short_sleeve", "white", "work"), &top)
	server.do(t, "POST", "/api/clothing", token, newClothing("bottom", "short", "black", "work"), &bottom)
	// Wrong subcategory for a hot day.
	server.do(t, "POST", "/api/clothing", token, newClothing("bottom", "long", "blue", "work"), nil)

	var plan planner.Plan
	if status := server.do(t, "GET", "/api/suggestions?purpose=work", token, nil, &plan); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if plan.Purpose != "work" || plan.AutoSelected {
		t.Errorf("purpose = %q auto = %v", plan.Purpose, plan.AutoSelected)
	}
	if len(plan.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(plan.Suggestions))
	}
	if plan.Suggestions[0].Top.ID != top.ID || plan.Suggestions[0].Bottom.ID != bottom.ID {
		t.Errorf("unexpected pairing: %s/%s", plan.Suggestions[0].Top.ID, plan.Suggestions[0].Bottom.ID)
	}

	// The explicit purpose is remembered.
	var sc model.SuggestionContext
	server.do(t, "GET", "/api/context", token, nil, &sc)
	if sc.Purpose != "work" {
		t.Errorf("stored purpose = %q, want work", sc.Purpose)
	}

	status := server.do(t, "POST", "/api/outfits/wear", token, map[string]string{
		"top_id": bottom.ID, "bottom_id": top.ID,
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for swapped categories, got %d", status)
	}

	status = server.do(t, "POST", "/api/outfits/wear", token, map[string]string{
		"top_id": top.ID, "bottom_id": bottom.ID,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 recording wear, got %d", status)
	}

	plan = planner.Plan{}
	server.do(t, "GET", "/api/suggestions", token, nil, &plan)
	if len(plan.Suggestions) != 0 {
		t.Errorf("recently worn items still suggested: %d", len(plan.Suggestions))
	}

	if status := server.do(t, "GET", "/api/suggestions?count=0", token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for count=0, got %d", status)
	}
	if status := server.do(t, "GET", "/api/suggestions?purpose=gym", token, nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown purpose, got %d", status)
	}
}

func TestUpdateLocation(t *testing.T) {
	server, token := setupTestServer(t)

	status := server.do(t, "PUT", "/api/context/location", token, map[string]any{
		"latitude": 35.68, "longitude": 139.69, "city": "Tokyo",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	var sc model.SuggestionContext
	server.do(t, "GET", "/api/context", token, nil, &sc)
	if !sc.HasCoordinates() || *sc.Latitude != 35.68 || sc.City != "Tokyo" {
		t.Errorf("unexpected context: %+v", sc)
	}

	status = server.do(t, "PUT", "/api/context/location", token, map[string]any{
		"latitude": 123.0, "longitude": 0.0,
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400 for out of range latitude, got %d", status)
	}
}
