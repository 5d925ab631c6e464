package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/erazemk/garderoba/internal/imaging"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
)

type clothingFormData struct {
	PageData
	Clothing      *model.Clothing
	Category      string
	Subcategory   string
	Color         string
	Purposes      []string
	AllPurposes   []string
	Subcategories map[model.Category][]model.Subcategory
	History       []model.WearEvent
}

// Selected reports whether the form has purpose p checked.
func (d *clothingFormData) Selected(p string) bool {
	return slices.Contains(d.Purposes, p)
}

func newClothingForm(page PageData) *clothingFormData {
	return &clothingFormData{
		PageData:    page,
		AllPurposes: model.Purposes,
		Subcategories: map[model.Category][]model.Subcategory{
			model.CategoryTop:    model.Subcategories(model.CategoryTop),
			model.CategoryBottom: model.Subcategories(model.CategoryBottom),
		},
	}
}

// parseClothingForm copies the posted fields into form and validates them.
// The returned message is shown to the user when the kind is invalid.
func parseClothingForm(r *http.Request, form *clothingFormData) (model.Kind, string) {
	form.Category = r.FormValue("category")
	form.Subcategory = r.FormValue("subcategory")
	form.Color = strings.TrimSpace(r.FormValue("color"))
	form.Purposes = model.NormalizePurposes(r.Form["purposes"])

	kind, err := model.ParseKind(form.Category, form.Subcategory)
	if err != nil {
		return model.Kind{}, "Choose a valid category and type."
	}
	if form.Color == "" {
		return model.Kind{}, "Color is required."
	}
	if len(form.Purposes) == 0 {
		return model.Kind{}, "Select at least one purpose."
	}
	for _, p := range form.Purposes {
		if !model.ValidPurpose(p) {
			return model.Kind{}, fmt.Sprintf("Unknown purpose %q.", p)
		}
	}
	return kind, ""
}

// ClosetPage handles GET /closet[?category=top|bottom].
func (s *Server) ClosetPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	category := model.Category(r.URL.Query().Get("category"))
	if model.Subcategories(category) == nil {
		category = ""
	}

	closet, err := store.ListClothing(r.Context(), s.DB, claims.UserID, category)
	if err != nil {
		slog.Error("failed to list clothing", "error", err)
	}

	s.Templates.Render(w, "closet.html", &struct {
		PageData
		Clothing []model.Clothing
		Category model.Category
	}{
		PageData: s.page(r, "Closet"),
		Clothing: closet,
		Category: category,
	})
}

// ClothingNewPage handles GET /closet/new.
func (s *Server) ClothingNewPage(w http.ResponseWriter, r *http.Request) {
	form := newClothingForm(s.page(r, "Add clothing"))
	form.Category = string(model.CategoryTop)
	s.Templates.Render(w, "clothing_form.html", form)
}

// ClothingCreateSubmit handles POST /closet. An optional photo is processed
// and analyzed right away.
func (s *Server) ClothingCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "upload too large", http.StatusBadRequest)
		return
	}

	form := newClothingForm(s.page(r, "Add clothing"))
	kind, msg := parseClothingForm(r, form)
	if msg != "" {
		form.Error = msg
		s.Templates.RenderStatus(w, http.StatusBadRequest, "clothing_form.html", form)
		return
	}

	c, err := store.CreateClothing(r.Context(), s.DB, claims.UserID, kind, form.Color, form.Purposes)
	if err != nil {
		slog.Error("failed to create clothing", "error", err)
		http.Error(w, "failed to create clothing", http.StatusInternalServerError)
		return
	}
	slog.Info("clothing created", "user", claims.Username, "clothing", c.ID, "kind", kind.String())

	if file, _, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		photo, err := imaging.Process(file)
		if err != nil {
			slog.Warn("photo rejected", "clothing", c.ID, "error", err)
		} else if _, err := s.savePhoto(r.Context(), claims.UserID, c.ID, photo); err != nil {
			slog.Error("failed to save photo", "clothing", c.ID, "error", err)
		}
	}

	http.Redirect(w, r, "/closet/"+c.ID, http.StatusSeeOther)
}

// ClothingEditPage handles GET /closet/{id}.
func (s *Server) ClothingEditPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	c, err := store.GetClothing(r.Context(), s.DB, claims.UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get clothing", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "clothing not found", http.StatusNotFound)
		return
	}

	history, err := store.ListWearHistory(r.Context(), s.DB, claims.UserID, c.ID, 10)
	if err != nil {
		slog.Error("failed to list wear history", "error", err)
	}

	form := newClothingForm(s.page(r, "Edit clothing"))
	form.Clothing = c
	form.Category = string(c.Kind.Category())
	form.Subcategory = string(c.Kind.Subcategory())
	form.Color = c.Color
	form.Purposes = c.Purposes
	form.History = history
	s.Templates.Render(w, "clothing_form.html", form)
}

// ClothingUpdateSubmit handles POST /closet/{id}.
func (s *Server) ClothingUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := newClothingForm(s.page(r, "Edit clothing"))
	kind, msg := parseClothingForm(r, form)
	if msg != "" {
		form.Clothing, _ = store.GetClothing(r.Context(), s.DB, claims.UserID, id)
		form.Error = msg
		s.Templates.RenderStatus(w, http.StatusBadRequest, "clothing_form.html", form)
		return
	}

	err := store.UpdateClothing(r.Context(), s.DB, claims.UserID, id, kind, form.Color, form.Purposes)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "clothing not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to update clothing", "error", err)
		http.Error(w, "failed to update", http.StatusInternalServerError)
		return
	}

	slog.Info("clothing updated", "user", claims.Username, "clothing", id)
	http.Redirect(w, r, "/closet/"+id, http.StatusSeeOther)
}

// ClothingDeleteSubmit handles POST /closet/{id}/delete.
func (s *Server) ClothingDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	err := store.DeleteClothing(r.Context(), s.DB, claims.UserID, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to delete clothing", "error", err)
		http.Error(w, "failed to delete", http.StatusInternalServerError)
		return
	}
	if err == nil {
		slog.Info("clothing deleted", "user", claims.Username, "clothing", id)
	}
	http.Redirect(w, r, "/closet", http.StatusSeeOther)
}

// ClothingPhotoSubmit handles POST /closet/{id}/photo.
func (s *Server) ClothingPhotoSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "photo required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	det, err := s.savePhoto(r.Context(), claims.UserID, id, photo)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "clothing not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("failed to save photo", "error", err)
		http.Error(w, "failed to save photo", http.StatusInternalServerError)
		return
	}

	slog.Info("clothing photo uploaded", "user", claims.Username, "clothing", id, "confidence", det.Confidence)
	http.Redirect(w, r, "/closet/"+id, http.StatusSeeOther)
}

// savePhoto stores a processed photo and records what analysis detected.
func (s *Server) savePhoto(ctx context.Context, userID int64, id string, photo *imaging.Photo) (*model.Detection, error) {
	if err := store.SetClothingPhoto(ctx, s.DB, userID, id, photo.Data, photo.MIME); err != nil {
		return nil, err
	}
	det := imaging.Analyze(photo.Image).Detection()
	if err := store.SetClothingDetection(ctx, s.DB, userID, id, det); err != nil {
		return nil, err
	}
	return det, nil
}

// ClothingPhotoGet handles GET /closet/{id}/photo.
func (s *Server) ClothingPhotoGet(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	data, mime, err := store.GetClothingPhoto(r.Context(), s.DB, claims.UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get photo", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write photo response", "error", err)
	}
}

// ClothingResetSubmit handles POST /closet/{id}/reset.
func (s *Server) ClothingResetSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	err := store.ResetWorn(r.Context(), s.DB, claims.UserID, id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "clothing not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to reset worn date", "error", err)
		http.Error(w, "failed to reset", http.StatusInternalServerError)
		return
	}

	slog.Info("worn date reset", "user", claims.Username, "clothing", id)
	http.Redirect(w, r, "/closet/"+id, http.StatusSeeOther)
}

// ClosetResetSubmit handles POST /closet/reset.
func (s *Server) ClosetResetSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	n, err := store.ResetAllWorn(r.Context(), s.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to reset worn dates", "error", err)
		http.Error(w, "failed to reset", http.StatusInternalServerError)
		return
	}

	slog.Info("all worn dates reset", "user", claims.Username, "cleared", n)
	http.Redirect(w, r, "/closet", http.StatusSeeOther)
}
