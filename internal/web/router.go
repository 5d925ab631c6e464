// Package web serves the server-rendered HTML interface.
package web

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/garderoba/internal/auth"
	"github.com/erazemk/garderoba/internal/planner"
	webembed "github.com/erazemk/garderoba/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sql.DB, tokens *auth.Tokens, plans *planner.Planner) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        db,
		Templates: templates,
		Tokens:    tokens,
		Planner:   plans,
		Now:       plans.Now,
	}
	if s.Now == nil {
		s.Now = time.Now
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(tokens, db)
	authed := func(h http.HandlerFunc) http.Handler { return cookieAuth(h) }

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	mux.Handle("GET /{$}", authed(s.Dashboard))
	mux.Handle("POST /outfits/wear", authed(s.WearSubmit))
	mux.Handle("POST /location", authed(s.LocationSubmit))

	mux.Handle("GET /closet", authed(s.ClosetPage))
	mux.Handle("POST /closet", authed(s.ClothingCreateSubmit))
	mux.Handle("GET /closet/new", authed(s.ClothingNewPage))
	mux.Handle("POST /closet/reset", authed(s.ClosetResetSubmit))
	mux.Handle("GET /closet/{id}", authed(s.ClothingEditPage))
	mux.Handle("POST /closet/{id}", authed(s.ClothingUpdateSubmit))
	mux.Handle("POST /closet/{id}/delete", authed(s.ClothingDeleteSubmit))
	mux.Handle("POST /closet/{id}/photo", authed(s.ClothingPhotoSubmit))
	mux.Handle("GET /closet/{id}/photo", authed(s.ClothingPhotoGet))
	mux.Handle("POST /closet/{id}/reset", authed(s.ClothingResetSubmit))

	mux.Handle("GET /calendar", authed(s.CalendarPage))
	mux.Handle("POST /calendar", authed(s.ScheduleCreateSubmit))
	mux.Handle("GET /calendar/new", authed(s.ScheduleNewPage))
	mux.Handle("GET /calendar/{id}", authed(s.ScheduleEditPage))
	mux.Handle("POST /calendar/{id}", authed(s.ScheduleUpdateSubmit))
	mux.Handle("POST /calendar/{id}/delete", authed(s.ScheduleDeleteSubmit))

	mux.Handle("GET /users", authed(s.UsersPage))
	mux.Handle("POST /users", authed(s.UserCreateSubmit))
	mux.Handle("POST /users/{id}/password", authed(s.UserResetPasswordSubmit))
	mux.Handle("POST /users/{id}/role", authed(s.UserUpdateRoleSubmit))
	mux.Handle("POST /users/{id}/delete", authed(s.UserDeleteSubmit))

	mux.Handle("GET /settings", authed(s.SettingsPage))
	mux.Handle("POST /settings", authed(s.SettingsSubmit))

	return mux, nil
}
