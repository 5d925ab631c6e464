package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/garderoba/internal/auth"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
)

type usersPageData struct {
	PageData
	Users []model.User
	Roles []string
}

func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, status int, errMsg, success string) {
	users, err := store.ListUsers(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
	}
	data := &usersPageData{
		PageData: s.page(r, "Users"),
		Users:    users,
		Roles:    []string{model.RoleUser, model.RoleAdmin},
	}
	data.Error = errMsg
	data.Success = success
	s.Templates.RenderStatus(w, status, "users.html", data)
}

// requireAdmin writes 403 and returns false for non-admins.
func requireAdmin(w http.ResponseWriter, claims *auth.Claims) bool {
	if !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// UsersPage handles GET /users (admin only).
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, GetWebClaims(r.Context())) {
		return
	}
	s.renderUsers(w, r, http.StatusOK, "", "")
}

// UserCreateSubmit handles POST /users (admin only).
func (s *Server) UserCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !requireAdmin(w, claims) {
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	role := r.FormValue("role")

	if username == "" || !model.ValidRole(role) {
		s.renderUsers(w, r, http.StatusBadRequest, "Enter a username and role.", "")
		return
	}
	if err := model.ValidatePassword(password); err != nil {
		s.renderUsers(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	if _, err := store.CreateUser(r.Context(), s.DB, username, hash, role); err != nil {
		slog.Warn("failed to create user", "username", username, "error", err)
		s.renderUsers(w, r, http.StatusConflict, "Could not create user. The username may be taken.", "")
		return
	}

	slog.Info("user created", "user", claims.Username, "target", username, "role", role)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// UserResetPasswordSubmit handles POST /users/{id}/password (admin only).
func (s *Server) UserResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !requireAdmin(w, claims) {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	newPassword := r.FormValue("new_password")
	if err := model.ValidatePassword(newPassword); err != nil {
		s.renderUsers(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), s.DB, id, hash); err != nil {
		slog.Error("failed to reset password", "error", err)
		s.renderUsers(w, r, http.StatusInternalServerError, "Could not reset password.", "")
		return
	}

	slog.Info("password reset", "user", claims.Username, "target", id)
	s.renderUsers(w, r, http.StatusOK, "", "Password reset.")
}

// UserUpdateRoleSubmit handles POST /users/{id}/role (admin only).
func (s *Server) UserUpdateRoleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !requireAdmin(w, claims) {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	if id == claims.UserID {
		s.renderUsers(w, r, http.StatusBadRequest, "You cannot change your own role.", "")
		return
	}

	role := r.FormValue("role")
	if !model.ValidRole(role) {
		s.renderUsers(w, r, http.StatusBadRequest, "Unknown role.", "")
		return
	}

	if err := store.UpdateUserRole(r.Context(), s.DB, id, role); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to update role", "error", err)
		http.Error(w, "failed to update role", http.StatusInternalServerError)
		return
	}

	slog.Info("role updated", "user", claims.Username, "target", id, "role", role)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// UserDeleteSubmit handles POST /users/{id}/delete (admin only).
func (s *Server) UserDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !requireAdmin(w, claims) {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	if id == claims.UserID {
		s.renderUsers(w, r, http.StatusBadRequest, "You cannot delete yourself.", "")
		return
	}

	if err := store.DeleteUser(r.Context(), s.DB, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to delete user", "error", err)
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}

	slog.Info("user deleted", "user", claims.Username, "target", id)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Settings")
	s.Templates.Render(w, "settings.html", &data)
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	data := s.page(r, "Settings")
	fail := func(status int, msg string) {
		data.Error = msg
		s.Templates.RenderStatus(w, status, "settings.html", &data)
	}

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	if currentPassword == "" || newPassword == "" {
		fail(http.StatusBadRequest, "Enter your current and new password.")
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil || user == nil {
		fail(http.StatusInternalServerError, "Could not load your account.")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, currentPassword) {
		fail(http.StatusBadRequest, "Current password is wrong.")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		fail(http.StatusInternalServerError, "Could not save the password.")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, hash); err != nil {
		fail(http.StatusInternalServerError, "Could not update the password.")
		return
	}

	slog.Info("password changed", "user", claims.Username)
	data.Success = "Password changed."
	s.Templates.Render(w, "settings.html", &data)
}
