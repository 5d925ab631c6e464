package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/garderoba/internal/imaging"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/store"
)

// ClothingHandler serves the authenticated user's closet.
type ClothingHandler struct {
	DB *sql.DB
}

type clothingRequest struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Color       string   `json:"color"`
	Purposes    []string `json:"purposes"`
}

// parse validates the request and returns its kind and normalized purposes.
func (req *clothingRequest) parse() (model.Kind, []string, error) {
	kind, err := model.ParseKind(req.Category, req.Subcategory)
	if err != nil {
		return model.Kind{}, nil, err
	}
	if strings.TrimSpace(req.Color) == "" {
		return model.Kind{}, nil, errors.New("color required")
	}
	purposes := model.NormalizePurposes(req.Purposes)
	if len(purposes) == 0 {
		return model.Kind{}, nil, store.ErrNoPurposes
	}
	for _, p := range purposes {
		if !model.ValidPurpose(p) {
			return model.Kind{}, nil, errors.New("unknown purpose " + p)
		}
	}
	return kind, purposes, nil
}

// List handles GET /api/clothing[?category=top|bottom].
func (h *ClothingHandler) List(w http.ResponseWriter, r *http.Request) {
	category := model.Category(r.URL.Query().Get("category"))
	if category != "" && model.Subcategories(category) == nil {
		jsonError(w, http.StatusBadRequest, "invalid category")
		return
	}

	closet, err := store.ListClothing(r.Context(), h.DB, GetClaims(r.Context()).UserID, category)
	if err != nil {
		slog.Error("failed to list clothing", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list clothing")
		return
	}
	if closet == nil {
		closet = []model.Clothing{}
	}
	jsonResponse(w, http.StatusOK, closet)
}

// Create handles POST /api/clothing.
func (h *ClothingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clothingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, purposes, err := req.parse()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	c, err := store.CreateClothing(r.Context(), h.DB, claims.UserID, kind, strings.TrimSpace(req.Color), purposes)
	if err != nil {
		slog.Error("failed to create clothing", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create clothing")
		return
	}

	slog.Info("clothing created", "user", claims.Username, "clothing", c.ID, "kind", c.Kind.String())
	jsonResponse(w, http.StatusCreated, c)
}

// Get handles GET /api/clothing/{id}.
func (h *ClothingHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := store.GetClothing(r.Context(), h.DB, GetClaims(r.Context()).UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get clothing", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get clothing")
		return
	}
	if c == nil {
		jsonError(w, http.StatusNotFound, "clothing not found")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Update handles PUT /api/clothing/{id}.
func (h *ClothingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req clothingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, purposes, err := req.parse()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if err := store.UpdateClothing(r.Context(), h.DB, claims.UserID, id, kind, strings.TrimSpace(req.Color), purposes); err != nil {
		h.writeStoreError(w, err, "failed to update clothing")
		return
	}

	c, _ := store.GetClothing(r.Context(), h.DB, claims.UserID, id)
	slog.Info("clothing updated", "user", claims.Username, "clothing", id)
	jsonResponse(w, http.StatusOK, c)
}

// Delete handles DELETE /api/clothing/{id}.
func (h *ClothingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if err := store.DeleteClothing(r.Context(), h.DB, claims.UserID, id); err != nil {
		h.writeStoreError(w, err, "failed to delete clothing")
		return
	}

	slog.Info("clothing deleted", "user", claims.Username, "clothing", id)
	jsonMessage(w, "clothing deleted")
}

// UploadPhoto handles PUT /api/clothing/{id}/photo. The photo is normalized,
// analyzed and stored together with the analysis.
func (h *ClothingHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SetClothingPhoto(r.Context(), h.DB, claims.UserID, id, photo.Data, photo.MIME); err != nil {
		h.writeStoreError(w, err, "failed to save photo")
		return
	}

	analysis := imaging.Analyze(photo.Image)
	det := analysis.Detection()
	if err := store.SetClothingDetection(r.Context(), h.DB, claims.UserID, id, det); err != nil {
		slog.Error("failed to save detection", "clothing", id, "error", err)
	}

	slog.Info("clothing photo uploaded", "user", claims.Username, "clothing", id, "confidence", det.Confidence)
	jsonResponse(w, http.StatusOK, det)
}

// GetPhoto handles GET /api/clothing/{id}/photo.
func (h *ClothingHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetClothingPhoto(r.Context(), h.DB, GetClaims(r.Context()).UserID, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// History handles GET /api/clothing/{id}/history.
func (h *ClothingHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := GetClaims(r.Context()).UserID
	id := r.PathValue("id")

	c, err := store.GetClothing(r.Context(), h.DB, userID, id)
	if err != nil || c == nil {
		jsonError(w, http.StatusNotFound, "clothing not found")
		return
	}

	events, err := store.ListWearHistory(r.Context(), h.DB, userID, id, 0)
	if err != nil {
		slog.Error("failed to get wear history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get wear history")
		return
	}
	if events == nil {
		events = []model.WearEvent{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// ResetWorn handles POST /api/clothing/{id}/reset-worn.
func (h *ClothingHandler) ResetWorn(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")
	if err := store.ResetWorn(r.Context(), h.DB, claims.UserID, id); err != nil {
		h.writeStoreError(w, err, "failed to reset worn date")
		return
	}
	slog.Info("worn date reset", "user", claims.Username, "clothing", id)
	jsonMessage(w, "worn date reset")
}

// ResetAllWorn handles POST /api/clothing/reset-worn.
func (h *ClothingHandler) ResetAllWorn(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	n, err := store.ResetAllWorn(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to reset worn dates", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to reset worn dates")
		return
	}
	slog.Info("all worn dates reset", "user", claims.Username, "count", n)
	jsonResponse(w, http.StatusOK, map[string]int64{"reset": n})
}

func (h *ClothingHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "clothing not found")
		return
	}
	slog.Error(message, "error", err)
	jsonError(w, http.StatusInternalServerError, message)
}
