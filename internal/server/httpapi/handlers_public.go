package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avolkonsky/cloudvault/internal/server/services"
)

// writeShareDenied renders a failed verification, attaching the lockout
// countdown or remaining attempts where the outcome carries them.
func (h *Handler) writeShareDenied(w http.ResponseWriter, access *services.Access, err error) {
	if access != nil && access.Status == services.AccessLocked && access.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(access.RetryAfter.Seconds())+1, 10))
	}
	status, code, msg := mapDomainError(err)
	payload := map[string]any{
		"status":  "error",
		"code":    code,
		"message": msg,
	}
	if access != nil {
		payload["access"] = string(access.Status)
		if access.Status == services.AccessWrongPassword {
			payload["attempts_left"] = access.AttemptsLeft
		}
		if access.Status == services.AccessLocked {
			payload["retry_after_seconds"] = int64(access.RetryAfter.Seconds()) + 1
		}
	}
	writeJSON(w, status, payload)
}

// shareInfo describes a share without consuming anything: for shares
// without a password it includes the file metadata, otherwise it only
// says a password is needed.
func (h *Handler) shareInfo(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	access, err := h.shares.Verify(r.Context(), code, "", readIP(r))
	if err != nil {
		h.writeShareDenied(w, access, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"access": string(access.Status),
		"file": map[string]any{
			"name":         access.File.Name,
			"size":         access.File.Size,
			"content_type": access.File.ContentType,
		},
	})
}

func (h *Handler) verifySharePassword(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return
	}

	access, err := h.shares.Verify(r.Context(), code, req.Password, readIP(r))
	if err != nil {
		h.writeShareDenied(w, access, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"access": string(access.Status),
		"file": map[string]any{
			"name":         access.File.Name,
			"size":         access.File.Size,
			"content_type": access.File.ContentType,
		},
	})
}

// downloadShared verifies access and streams the file in one request. The
// download budget is only consumed once the bytes are open.
func (h *Handler) downloadShared(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req struct {
		Password string `json:"password"`
	}
	if r.Body != nil {
		// Body is optional for shares without a password.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	rc, access, err := h.shares.Download(r.Context(), code, req.Password, readIP(r))
	if err != nil {
		h.writeShareDenied(w, access, err)
		return
	}
	defer rc.Close()

	streamFile(w, r, rc, access.File)
}
