package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkravets/inventar/internal/imaging"
	"github.com/mkravets/inventar/internal/model"
	"github.com/mkravets/inventar/internal/photo"
	"github.com/mkravets/inventar/internal/store"
)

// maxUploadSize caps photo uploads at 10 MB.
const maxUploadSize = 10 << 20

// InventoryHandler handles the item CRUD and photo endpoints.
type InventoryHandler struct {
	Repo   store.Repository
	Photos *photo.Store
}

type registerRequest struct {
	Name        string `json:"inventory_name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4096"`
}

type updateItemRequest struct {
	Name        string `json:"name" validate:"required_without=Description,max=255"`
	Description string `json:"description" validate:"required_without=Name,max=4096"`
}

// itemSummary is the list/update response shape: no photo information.
type itemSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// itemResponse is the single-item response shape. Photo is a link to the
// photo endpoint, or null when no stored photo file resolves.
type itemResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Photo       *string `json:"photo"`
}

// photoLink returns the photo endpoint link for the item, or nil if the
// item has no photo reference or the referenced file is gone.
func (h *InventoryHandler) photoLink(item *model.Item) *string {
	if !h.Photos.Exists(item.PhotoPath) {
		return nil
	}
	link := fmt.Sprintf("/inventory/%d/photo", item.ID)
	return &link
}

func (h *InventoryHandler) itemResponse(item *model.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Photo:       h.photoLink(item),
	}
}

// List handles GET /inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	summaries := make([]itemSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, itemSummary{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
		})
	}
	jsonResponse(w, http.StatusOK, summaries)
}

// Get handles GET /inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, h.itemResponse(item))
}

// Search handles GET /search?id=, the query-parameter twin of Get.
func (h *InventoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, h.itemResponse(item))
}

// Register handles POST /register. The body is a multipart form with
// inventory_name, description, and an optional photo file. Validation
// runs before anything is persisted, so a rejected request never leaves
// a record or a file behind.
func (h *InventoryHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req := registerRequest{
		Name:        strings.TrimSpace(r.FormValue("inventory_name")),
		Description: r.FormValue("description"),
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.Repo.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		jsonResponse(w, http.StatusCreated, h.itemResponse(item))
		return
	}
	if err != nil {
		h.discardItem(r, item.ID)
		jsonError(w, http.StatusBadRequest, "invalid photo field")
		return
	}
	defer file.Close()

	path, err := h.Photos.Save(item.ID, file, header.Filename)
	if err != nil {
		h.discardItem(r, item.ID)
		writeError(w, err)
		return
	}

	if err := h.Repo.SetPhotoPath(r.Context(), item.ID, path); err != nil {
		if derr := h.Photos.Delete(path); derr != nil {
			slog.Warn("could not remove photo after failed registration", "error", derr)
		}
		h.discardItem(r, item.ID)
		writeError(w, err)
		return
	}
	item.PhotoPath = path

	jsonResponse(w, http.StatusCreated, h.itemResponse(item))
}

// discardItem best-effort removes a half-registered item record.
func (h *InventoryHandler) discardItem(r *http.Request, id int64) {
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		slog.Warn("could not remove item after failed registration", "id", id, "error", err)
	}
}

// Update handles PUT /inventory/{id}. At least one of name/description
// must be given; an absent field keeps its stored value.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.Repo.UpdateFields(r.Context(), id, req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, itemSummary{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
	})
}

// UpdatePhoto handles PUT /inventory/{id}/photo. The photo replaces any
// previous one; if recording the new reference fails, the freshly
// written file is removed again.
func (h *InventoryHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	// Confirm the item exists before writing anything to disk.
	if _, err := h.Repo.Get(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	path, err := h.Photos.Save(id, file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Repo.SetPhotoPath(r.Context(), id, path); err != nil {
		if derr := h.Photos.Delete(path); derr != nil {
			slog.Warn("could not remove unreferenced photo", "error", derr)
		}
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "photo updated",
		"photo":   fmt.Sprintf("/inventory/%d/photo", id),
	})
}

// GetPhoto handles GET /inventory/{id}/photo, streaming the stored bytes
// unmodified. Errors on this endpoint are plain text.
func (h *InventoryHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeTextError(w, err)
		return
	}

	item, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeTextError(w, err)
		return
	}

	f, contentType, err := h.Photos.Open(item.PhotoPath)
	if err != nil {
		writeTextError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, f); err != nil {
		slog.Error("streaming photo", "id", id, "error", err)
	}
}

// GetThumbnail handles GET /inventory/{id}/photo/thumb, serving a
// downscaled JPEG of the stored photo.
func (h *InventoryHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeTextError(w, err)
		return
	}

	item, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeTextError(w, err)
		return
	}

	f, _, err := h.Photos.Open(item.PhotoPath)
	if err != nil {
		writeTextError(w, err)
		return
	}
	defer f.Close()

	thumb, err := imaging.Thumbnail(f)
	if err != nil {
		slog.Error("generating thumbnail", "id", id, "error", err)
		textError(w, http.StatusInternalServerError, "server error")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(thumb)
}

// Delete handles DELETE /inventory/{id}. The record removal is the
// authoritative action; photo file cleanup is best-effort.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Photos.Delete(item.PhotoPath); err != nil {
		slog.Warn("could not remove photo of deleted item", "id", id, "error", err)
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}
