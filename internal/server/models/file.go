// Package models defines server-side data models persisted in the database.
package models

import "time"

// Backend names the storage system holding a file's bytes.
type Backend string

const (
	// BackendRemote is the primary S3-compatible object store.
	BackendRemote Backend = "remote"
	// BackendLocal is the local-disk fallback.
	BackendLocal Backend = "local"
)

// Location points at a file's bytes in exactly one backend.
// Container/Key are set for BackendRemote, Path for BackendLocal.
type Location struct {
	Backend   Backend
	Container string
	Key       string
	Path      string
}

// StoredFile describes a user file. The bytes live behind Location; this
// row exists only if the bytes were written successfully to some backend.
type StoredFile struct {
	ID           string
	OwnerID      string
	FolderID     *string
	Name         string
	OriginalName string
	Size         int64
	ContentType  string
	Location     Location

	// IsDeleted/DeletedAt track the trash state. They are always set
	// together: IsDeleted == (DeletedAt != nil).
	IsDeleted bool
	DeletedAt *time.Time

	// DownloadCount is monotonically non-decreasing.
	DownloadCount int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrashStats summarizes a principal's trashed files.
type TrashStats struct {
	Count      int64
	TotalBytes int64
}

// PurgeReport is the outcome of emptying the trash. Backend delete failures
// are counted but do not abort the batch.
type PurgeReport struct {
	PurgedCount   int64
	FreedBytes    int64
	BackendErrors int64
}
