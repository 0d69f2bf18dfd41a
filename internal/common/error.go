// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Storage-layer errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrObjectNotFound     = errors.New("object not found")

	// Quota errors.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// Share access errors.
	ErrShareNotFound        = errors.New("share not found")
	ErrShareExpired         = errors.New("share expired")
	ErrShareLocked          = errors.New("share locked")
	ErrPasswordRequired     = errors.New("password required")
	ErrPasswordMismatch     = errors.New("password mismatch")
	ErrDownloadLimitReached = errors.New("download limit reached")
	ErrShareAlreadyExists   = errors.New("active share already exists")

	// Folder and naming errors.
	ErrFolderNotEmpty = errors.New("folder not empty")
	ErrDuplicateName  = errors.New("duplicate name")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
