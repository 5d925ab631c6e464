package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/planner"
	"github.com/erazemk/garderoba/internal/store"
)

// MaxSuggestionCount bounds ?count= on the suggestions endpoint.
const MaxSuggestionCount = 20

// SuggestionsHandler serves outfit suggestions and records worn outfits.
type SuggestionsHandler struct {
	DB      *sql.DB
	Planner *planner.Planner
	Now     func() time.Time
}

type wearRequest struct {
	TopID    string `json:"top_id"`
	BottomID string `json:"bottom_id"`
	Date     string `json:"date"`
}

// Get handles GET /api/suggestions?purpose=&count=.
func (h *SuggestionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	purpose := q.Get("purpose")
	if purpose != "" && !model.ValidPurpose(purpose) {
		jsonError(w, http.StatusBadRequest, "unknown purpose")
		return
	}

	var count int
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxSuggestionCount {
			jsonError(w, http.StatusBadRequest, "count must be between 1 and 20")
			return
		}
		count = n
	}

	plan, err := h.Planner.Plan(r.Context(), planner.Request{
		UserID:  GetClaims(r.Context()).UserID,
		Purpose: purpose,
		Count:   count,
	})
	if err != nil {
		slog.Error("failed to plan outfits", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate suggestions")
		return
	}
	jsonResponse(w, http.StatusOK, plan)
}

// Wear handles POST /api/outfits/wear. Date defaults to today.
func (h *SuggestionsHandler) Wear(w http.ResponseWriter, r *http.Request) {
	var req wearRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopID == "" || req.BottomID == "" {
		jsonError(w, http.StatusBadRequest, "top_id and bottom_id required")
		return
	}

	on := h.Now()
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		on = d
	}

	claims := GetClaims(r.Context())
	event, err := store.RecordWear(r.Context(), h.DB, claims.UserID, req.TopID, req.BottomID, on)
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "clothing not found")
		return
	case errors.Is(err, store.ErrWrongCategory):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("failed to record wear", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to record outfit")
		return
	}

	slog.Info("outfit worn", "user", claims.Username, "top", req.TopID, "bottom", req.BottomID)
	jsonResponse(w, http.StatusCreated, event)
}
