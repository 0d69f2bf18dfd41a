package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// maxUploadBytes caps one multipart upload request.
const maxUploadBytes = 1 << 30

type fileResponse struct {
	ID            string     `json:"id"`
	FolderID      *string    `json:"folder_id"`
	Name          string     `json:"name"`
	Size          int64      `json:"size"`
	ContentType   string     `json:"content_type"`
	Backend       string     `json:"backend"`
	IsDeleted     bool       `json:"is_deleted"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DownloadCount int64      `json:"download_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toFileResponse(f *models.StoredFile) fileResponse {
	return fileResponse{
		ID:            f.ID,
		FolderID:      f.FolderID,
		Name:          f.Name,
		Size:          f.Size,
		ContentType:   f.ContentType,
		Backend:       string(f.Location.Backend),
		IsDeleted:     f.IsDeleted,
		DeletedAt:     f.DeletedAt,
		DownloadCount: f.DownloadCount,
		CreatedAt:     f.CreatedAt,
	}
}

func toFileResponses(files []*models.StoredFile) []fileResponse {
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out
}

func folderIDParam(r *http.Request) *string {
	if v := r.URL.Query().Get("folder_id"); v != "" {
		return &v
	}
	return nil
}

func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid multipart body")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "missing file part")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "reading file part")
		return
	}

	var folderID *string
	if v := r.FormValue("folder_id"); v != "" {
		folderID = &v
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f, err := h.files.Upload(r.Context(), principal, folderID, header.Filename, data, contentType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toFileResponse(f))
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	files, err := h.files.List(r.Context(), principal.ID, folderIDParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toFileResponses(files))
}

func (h *Handler) getFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	f, err := h.files.Get(r.Context(), principal.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toFileResponse(f))
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	rc, f, err := h.files.Download(r.Context(), principal.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer rc.Close()

	streamFile(w, r, rc, f)
}

func streamFile(w http.ResponseWriter, r *http.Request, rc io.Reader, f *models.StoredFile) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", f.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (h *Handler) trashFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	if err := h.files.Trash(r.Context(), principal.ID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "moved to trash")
}

func (h *Handler) listTrash(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	files, err := h.files.ListTrash(r.Context(), principal.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	stats, err := h.files.TrashStats(r.Context(), principal.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"files":       toFileResponses(files),
		"count":       stats.Count,
		"total_bytes": stats.TotalBytes,
	})
}

func (h *Handler) restoreFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	if err := h.files.Restore(r.Context(), principal.ID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "restored")
}

func (h *Handler) purgeFile(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	if err := h.files.Purge(r.Context(), principal.ID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "purged")
}

func (h *Handler) emptyTrash(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	report, err := h.files.EmptyTrash(r.Context(), principal.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"purged_count":   report.PurgedCount,
		"freed_bytes":    report.FreedBytes,
		"backend_errors": report.BackendErrors,
	})
}

func (h *Handler) storageInfo(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFromContext(r.Context())

	info, err := h.files.Info(r.Context(), principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var usedPercent float64
	if info.Quota.Quota > 0 {
		usedPercent = float64(info.Quota.Used) / float64(info.Quota.Quota) * 100
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"quota":        info.Quota.Quota,
		"used":         info.Quota.Used,
		"used_percent": usedPercent,
		"reserved":     info.Quota.Reserved,
		"available":    info.Quota.Available(),
		"file_count":   info.FileCount,
		"trash_count":  info.Trash.Count,
		"trash_bytes":  info.Trash.TotalBytes,
	})
}
