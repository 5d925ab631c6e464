package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
)

const pastScheduleLimit = 10

type scheduleFormData struct {
	PageData
	Schedule *model.Schedule
	Date     string
	Purpose  string
	Memo     string
	Purposes []string
}

func parseScheduleForm(r *http.Request, form *scheduleFormData) (time.Time, string) {
	form.Date = r.FormValue("date")
	form.Purpose = r.FormValue("purpose")
	form.Memo = r.FormValue("memo")

	date, err := model.ParseDate(form.Date)
	if err != nil {
		return time.Time{}, "Enter a valid date."
	}
	if !model.ValidPurpose(form.Purpose) {
		return time.Time{}, "Choose a purpose."
	}
	return date, ""
}

// CalendarPage handles GET /calendar.
func (s *Server) CalendarPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	today := model.Day(s.now())

	upcoming, err := store.ListUpcomingSchedules(r.Context(), s.DB, claims.UserID, today)
	if err != nil {
		slog.Error("failed to list upcoming schedules", "error", err)
	}
	past, err := store.ListPastSchedules(r.Context(), s.DB, claims.UserID, today, pastScheduleLimit)
	if err != nil {
		slog.Error("failed to list past schedules", "error", err)
	}

	s.Templates.Render(w, "calendar.html", &struct {
		PageData
		Today    string
		Upcoming []model.Schedule
		Past     []model.Schedule
	}{
		PageData: s.page(r, "Calendar"),
		Today:    today.Format(model.DateLayout),
		Upcoming: upcoming,
		Past:     past,
	})
}

// ScheduleNewPage handles GET /calendar/new[?date=YYYY-MM-DD].
func (s *Server) ScheduleNewPage(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = model.Day(s.now()).Format(model.DateLayout)
	}
	s.Templates.Render(w, "schedule_form.html", &scheduleFormData{
		PageData: s.page(r, "New plan"),
		Date:     date,
		Purposes: model.Purposes,
	})
}

// ScheduleCreateSubmit handles POST /calendar.
func (s *Server) ScheduleCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	form := &scheduleFormData{PageData: s.page(r, "New plan"), Purposes: model.Purposes}

	date, msg := parseScheduleForm(r, form)
	if msg != "" {
		form.Error = msg
		s.Templates.RenderStatus(w, http.StatusBadRequest, "schedule_form.html", form)
		return
	}

	sched, err := store.CreateSchedule(r.Context(), s.DB, claims.UserID, date, form.Purpose, form.Memo)
	if errors.Is(err, store.ErrScheduleConflict) {
		form.Error = "There is already a plan for that day."
		s.Templates.RenderStatus(w, http.StatusConflict, "schedule_form.html", form)
		return
	}
	if err != nil {
		slog.Error("failed to create schedule", "error", err)
		http.Error(w, "failed to create schedule", http.StatusInternalServerError)
		return
	}

	slog.Info("schedule created", "user", claims.Username, "date", sched.DateString(), "purpose", sched.Purpose)
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

// ScheduleEditPage handles GET /calendar/{id}.
func (s *Server) ScheduleEditPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	sched, err := store.GetSchedule(r.Context(), s.DB, claims.UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get schedule", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if sched == nil {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	s.Templates.Render(w, "schedule_form.html", &scheduleFormData{
		PageData: s.page(r, "Edit plan"),
		Schedule: sched,
		Date:     sched.DateString(),
		Purpose:  sched.Purpose,
		Memo:     sched.Memo,
		Purposes: model.Purposes,
	})
}

// ScheduleUpdateSubmit handles POST /calendar/{id}.
func (s *Server) ScheduleUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")
	form := &scheduleFormData{PageData: s.page(r, "Edit plan"), Purposes: model.Purposes}
	form.Schedule, _ = store.GetSchedule(r.Context(), s.DB, claims.UserID, id)

	date, msg := parseScheduleForm(r, form)
	if msg != "" {
		form.Error = msg
		s.Templates.RenderStatus(w, http.StatusBadRequest, "schedule_form.html", form)
		return
	}

	err := store.UpdateSchedule(r.Context(), s.DB, claims.UserID, id, date, form.Purpose, form.Memo)
	switch {
	case errors.Is(err, store.ErrScheduleConflict):
		form.Error = "There is already a plan for that day."
		s.Templates.RenderStatus(w, http.StatusConflict, "schedule_form.html", form)
		return
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("failed to update schedule", "error", err)
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}

	slog.Info("schedule updated", "user", claims.Username, "schedule", id)
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

// ScheduleDeleteSubmit handles POST /calendar/{id}/delete.
func (s *Server) ScheduleDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	err := store.DeleteSchedule(r.Context(), s.DB, claims.UserID, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to delete schedule", "error", err)
		http.Error(w, "failed to delete schedule", http.StatusInternalServerError)
		return
	}
	if err == nil {
		slog.Info("schedule deleted", "user", claims.Username, "schedule", id)
	}
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}
