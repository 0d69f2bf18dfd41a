package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkonsky/cloudvault/internal/common"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing token"
	case errors.Is(err, common.ErrPasswordRequired):
		return http.StatusForbidden, "PASSWORD_REQUIRED", "this share requires a password"
	case errors.Is(err, common.ErrPasswordMismatch):
		return http.StatusForbidden, "PASSWORD_MISMATCH", "wrong password"
	case errors.Is(err, common.ErrShareLocked):
		return http.StatusTooManyRequests, "SHARE_LOCKED", "too many attempts, try again later"
	case errors.Is(err, common.ErrShareExpired), errors.Is(err, common.ErrDownloadLimitReached):
		return http.StatusGone, "SHARE_EXPIRED", "this share is no longer available"
	case errors.Is(err, common.ErrShareNotFound):
		return http.StatusNotFound, "NOT_FOUND", "share not found"
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrObjectNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, common.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, "QUOTA_EXCEEDED", "storage quota exhausted"
	case errors.Is(err, common.ErrDuplicateName):
		return http.StatusBadRequest, "DUPLICATE_NAME", "a file or folder with this name already exists"
	case errors.Is(err, common.ErrShareAlreadyExists):
		return http.StatusConflict, "SHARE_EXISTS", "an active share already exists for this file"
	case errors.Is(err, common.ErrFolderNotEmpty):
		return http.StatusBadRequest, "FOLDER_NOT_EMPTY", "folder is not empty"
	case errors.Is(err, common.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage temporarily unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code, msg := mapDomainError(err)
	writeError(w, status, code, msg)
}
