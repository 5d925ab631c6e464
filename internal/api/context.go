package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/garderoba/internal/store"
)

// ContextHandler exposes the stored purpose and location used for suggestions.
type ContextHandler struct {
	DB *sql.DB
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
}

// Get handles GET /api/context.
func (h *ContextHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, err := store.GetSuggestionContext(r.Context(), h.DB, GetClaims(r.Context()).UserID)
	if err != nil {
		slog.Error("failed to get suggestion context", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get context")
		return
	}
	jsonResponse(w, http.StatusOK, sc)
}

// UpdateLocation handles PUT /api/context/location.
func (h *ContextHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validCoordinates(req.Latitude, req.Longitude) {
		jsonError(w, http.StatusBadRequest, "latitude and longitude required")
		return
	}

	userID := GetClaims(r.Context()).UserID
	if err := store.SaveContextLocation(r.Context(), h.DB, userID, *req.Latitude, *req.Longitude, req.City); err != nil {
		slog.Error("failed to save location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save location")
		return
	}
	jsonMessage(w, "location saved")
}

// validCoordinates reports whether both values are present and in range.
func validCoordinates(lat, lon *float64) bool {
	return lat != nil && lon != nil &&
		*lat >= -90 && *lat <= 90 &&
		*lon >= -180 && *lon <= 180
}
