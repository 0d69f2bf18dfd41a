package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avolkonsky/cloudvault/internal/server/models"
)

type folderResponse struct {
	ID        string    `json:"id"`
	ParentID  *string   `json:"parent_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toFolderResponse(f *models.Folder) folderResponse {
	return folderResponse{ID: f.ID, ParentID: f.ParentID, Name: f.Name, CreatedAt: f.CreatedAt}
}

func (h *Handler) createFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var req struct {
		Name     string  `json:"name"`
		ParentID *string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}

	folder, err := h.folders.Create(r.Context(), principal.ID, req.ParentID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toFolderResponse(folder))
}

func (h *Handler) listFolders(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var parentID *string
	if v := r.URL.Query().Get("parent_id"); v != "" {
		parentID = &v
	}

	folders, err := h.folders.List(r.Context(), principal.ID, parentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]folderResponse, 0, len(folders))
	for _, f := range folders {
		out = append(out, toFolderResponse(f))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) deleteFolder(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	if err := h.folders.Delete(r.Context(), principal.ID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "deleted")
}
