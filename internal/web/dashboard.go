package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/planner"
	"github.com/erazemk/garderoba/internal/store"
)

// Dashboard handles GET /. ?purpose= overrides the resolved purpose.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	data := &struct {
		PageData
		Plan     *planner.Plan
		Purposes []string
	}{
		PageData: s.page(r, "Today"),
		Purposes: model.Purposes,
	}

	purpose := r.URL.Query().Get("purpose")
	if purpose != "" && !model.ValidPurpose(purpose) {
		purpose = ""
		data.Error = "Unknown purpose."
	}
	if r.URL.Query().Get("worn") != "" {
		data.Success = "Outfit recorded. Enjoy your day!"
	}

	plan, err := s.Planner.Plan(r.Context(), planner.Request{UserID: claims.UserID, Purpose: purpose})
	if err != nil {
		slog.Error("failed to plan outfits for dashboard", "error", err)
		data.Error = "Could not generate suggestions."
	}
	data.Plan = plan

	s.Templates.Render(w, "dashboard.html", data)
}

// WearSubmit handles POST /outfits/wear.
func (s *Server) WearSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	topID := r.FormValue("top_id")
	bottomID := r.FormValue("bottom_id")

	if topID == "" || bottomID == "" {
		http.Error(w, "top and bottom required", http.StatusBadRequest)
		return
	}

	_, err := store.RecordWear(r.Context(), s.DB, claims.UserID, topID, bottomID, s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "clothing not found", http.StatusNotFound)
		return
	case errors.Is(err, store.ErrWrongCategory):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("failed to record wear", "error", err)
		http.Error(w, "failed to record outfit", http.StatusInternalServerError)
		return
	}

	slog.Info("outfit worn", "user", claims.Username, "top", topID, "bottom", bottomID)
	http.Redirect(w, r, "/?worn=1", http.StatusSeeOther)
}

type locationForm struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
}

// LocationSubmit handles POST /location, sent by the browser after a
// geolocation lookup.
func (s *Server) LocationSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	var loc locationForm
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&loc); err != nil {
		http.Error(w, "invalid location", http.StatusBadRequest)
		return
	}
	if loc.Latitude == nil || loc.Longitude == nil ||
		*loc.Latitude < -90 || *loc.Latitude > 90 ||
		*loc.Longitude < -180 || *loc.Longitude > 180 {
		http.Error(w, "invalid location", http.StatusBadRequest)
		return
	}

	if err := store.SaveContextLocation(r.Context(), s.DB, claims.UserID, *loc.Latitude, *loc.Longitude, loc.City); err != nil {
		slog.Error("failed to save location", "error", err)
		http.Error(w, "failed to save location", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
