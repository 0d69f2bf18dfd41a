package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avolkonsky/cloudvault/internal/server/models"
)

type shareResponse struct {
	ID            string     `json:"id"`
	FileID        string     `json:"file_id"`
	ShareCode     string     `json:"share_code"`
	HasPassword   bool       `json:"has_password"`
	IsActive      bool       `json:"is_active"`
	ExpireAt      *time.Time `json:"expire_at,omitempty"`
	MaxDownloads  *int64     `json:"max_downloads,omitempty"`
	DownloadCount int64      `json:"download_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toShareResponse(s *models.ShareLink) shareResponse {
	return shareResponse{
		ID:            s.ID,
		FileID:        s.FileID,
		ShareCode:     s.ShareCode,
		HasPassword:   s.Password != "",
		IsActive:      s.IsActive,
		ExpireAt:      s.ExpireAt,
		MaxDownloads:  s.MaxDownloads,
		DownloadCount: s.DownloadCount,
		CreatedAt:     s.CreatedAt,
	}
}

func (h *Handler) createShare(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var req struct {
		FileID       string     `json:"file_id"`
		Password     string     `json:"password"`
		ExpireAt     *time.Time `json:"expire_at"`
		MaxDownloads *int64     `json:"max_downloads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "file_id is required")
		return
	}
	if req.ExpireAt != nil && req.ExpireAt.Before(time.Now()) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "expire_at is in the past")
		return
	}
	if req.MaxDownloads != nil && *req.MaxDownloads <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "max_downloads must be positive")
		return
	}

	share, err := h.shares.Create(r.Context(), principal.ID, req.FileID, req.Password, req.ExpireAt, req.MaxDownloads)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toShareResponse(share))
}

func (h *Handler) listShares(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	active := r.URL.Query().Get("active") != "false"
	sharesList, err := h.shares.List(r.Context(), principal.ID, active)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]shareResponse, 0, len(sharesList))
	for _, s := range sharesList {
		out = append(out, toShareResponse(s))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) revokeShare(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	if err := h.shares.Revoke(r.Context(), principal.ID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "revoked")
}

// saveShared copies a shared file into the caller's own space. The share
// is re-verified here so a revocation or lockout between page view and
// save is honored.
func (h *Handler) saveShared(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	var req struct {
		Code     string  `json:"code"`
		Password string  `json:"password"`
		FolderID *string `json:"folder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "code is required")
		return
	}

	access, err := h.shares.Verify(r.Context(), req.Code, req.Password, readIP(r))
	if err != nil {
		h.writeShareDenied(w, access, err)
		return
	}

	f, err := h.files.SaveShared(r.Context(), principal, access.File, req.FolderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toFileResponse(f))
}
