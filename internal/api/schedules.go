package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
)

// PastScheduleLimit caps the past entries returned with ?when=past.
const PastScheduleLimit = 10

// SchedulesHandler serves the user's calendar.
type SchedulesHandler struct {
	DB  *sql.DB
	Now func() time.Time
}

type scheduleRequest struct {
	Date    string `json:"date"`
	Purpose string `json:"purpose"`
	Memo    string `json:"memo"`
}

func (req *scheduleRequest) parse() (time.Time, error) {
	if req.Date == "" || req.Purpose == "" {
		return time.Time{}, errors.New("date and purpose required")
	}
	if !model.ValidPurpose(req.Purpose) {
		return time.Time{}, errors.New("unknown purpose " + req.Purpose)
	}
	return model.ParseDate(req.Date)
}

// List handles GET /api/schedules[?when=upcoming|past].
func (h *SchedulesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := GetClaims(r.Context()).UserID
	today := model.Day(h.Now())

	var schedules []model.Schedule
	var err error
	switch r.URL.Query().Get("when") {
	case "", "upcoming":
		schedules, err = store.ListUpcomingSchedules(r.Context(), h.DB, userID, today)
	case "past":
		schedules, err = store.ListPastSchedules(r.Context(), h.DB, userID, today, PastScheduleLimit)
	default:
		jsonError(w, http.StatusBadRequest, "when must be upcoming or past")
		return
	}
	if err != nil {
		slog.Error("failed to list schedules", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	if schedules == nil {
		schedules = []model.Schedule{}
	}
	jsonResponse(w, http.StatusOK, schedules)
}

// Create handles POST /api/schedules.
func (h *SchedulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := req.parse()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	s, err := store.CreateSchedule(r.Context(), h.DB, claims.UserID, date, req.Purpose, req.Memo)
	if err != nil {
		h.writeStoreError(w, err, "failed to create schedule")
		return
	}

	slog.Info("schedule created", "user", claims.Username, "date", s.DateString(), "purpose", s.Purpose)
	jsonResponse(w, http.StatusCreated, s)
}

// Get handles GET /api/schedules/{id}.
func (h *SchedulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := store.GetSchedule(r.Context(), h.DB, GetClaims(r.Context()).UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get schedule", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get schedule")
		return
	}
	if s == nil {
		jsonError(w, http.StatusNotFound, "schedule not found")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Update handles PUT /api/schedules/{id}.
func (h *SchedulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := req.parse()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if err := store.UpdateSchedule(r.Context(), h.DB, claims.UserID, id, date, req.Purpose, req.Memo); err != nil {
		h.writeStoreError(w, err, "failed to update schedule")
		return
	}

	s, _ := store.GetSchedule(r.Context(), h.DB, claims.UserID, id)
	jsonResponse(w, http.StatusOK, s)
}

// Delete handles DELETE /api/schedules/{id}.
func (h *SchedulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := store.DeleteSchedule(r.Context(), h.DB, claims.UserID, r.PathValue("id")); err != nil {
		h.writeStoreError(w, err, "failed to delete schedule")
		return
	}
	jsonMessage(w, "schedule deleted")
}

func (h *SchedulesHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, store.ErrScheduleConflict):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "schedule not found")
	default:
		slog.Error(message, "error", err)
		jsonError(w, http.StatusInternalServerError, message)
	}
}
