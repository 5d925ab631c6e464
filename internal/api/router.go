// Package api serves the JSON API under /api.
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/garderoba/internal/auth"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/planner"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, tokens *auth.Tokens, plans *planner.Planner) http.Handler {
	mux := http.NewServeMux()

	now := plans.Now
	if now == nil {
		now = time.Now
	}

	authHandler := &AuthHandler{DB: db, Tokens: tokens}
	usersHandler := &UsersHandler{DB: db}
	clothingHandler := &ClothingHandler{DB: db}
	schedulesHandler := &SchedulesHandler{DB: db, Now: now}
	suggestionsHandler := &SuggestionsHandler{DB: db, Planner: plans, Now: now}
	contextHandler := &ContextHandler{DB: db}

	authMW := AuthMiddleware(tokens, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	mux.Handle("GET /api/clothing", authed(clothingHandler.List))
	mux.Handle("POST /api/clothing", authed(clothingHandler.Create))
	mux.Handle("POST /api/clothing/reset-worn", authed(clothingHandler.ResetAllWorn))
	mux.Handle("GET /api/clothing/{id}", authed(clothingHandler.Get))
	mux.Handle("PUT /api/clothing/{id}", authed(clothingHandler.Update))
	mux.Handle("DELETE /api/clothing/{id}", authed(clothingHandler.Delete))
	mux.Handle("PUT /api/clothing/{id}/photo", authed(clothingHandler.UploadPhoto))
	mux.Handle("GET /api/clothing/{id}/photo", authed(clothingHandler.GetPhoto))
	mux.Handle("GET /api/clothing/{id}/history", authed(clothingHandler.History))
	mux.Handle("POST /api/clothing/{id}/reset-worn", authed(clothingHandler.ResetWorn))

	mux.Handle("GET /api/schedules", authed(schedulesHandler.List))
	mux.Handle("POST /api/schedules", authed(schedulesHandler.Create))
	mux.Handle("GET /api/schedules/{id}", authed(schedulesHandler.Get))
	mux.Handle("PUT /api/schedules/{id}", authed(schedulesHandler.Update))
	mux.Handle("DELETE /api/schedules/{id}", authed(schedulesHandler.Delete))

	mux.Handle("GET /api/suggestions", authed(suggestionsHandler.Get))
	mux.Handle("POST /api/outfits/wear", authed(suggestionsHandler.Wear))

	mux.Handle("GET /api/context", authed(contextHandler.Get))
	mux.Handle("PUT /api/context/location", authed(contextHandler.UpdateLocation))

	return mux
}
