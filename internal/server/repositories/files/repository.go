// Package files persists StoredFile metadata rows.
package files

import (
	"context"

	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// Repository is the storage contract for file metadata. A row exists only
// if the underlying bytes were written to some backend first.
type Repository interface {
	Insert(ctx context.Context, f *models.StoredFile) error
	Get(ctx context.Context, id, ownerID string) (*models.StoredFile, error)
	GetByID(ctx context.Context, id string) (*models.StoredFile, error)
	ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]*models.StoredFile, error)
	ListTrashed(ctx context.Context, ownerID string) ([]*models.StoredFile, error)
	TrashStats(ctx context.Context, ownerID string) (*models.TrashStats, error)
	SoftDelete(ctx context.Context, id, ownerID string) error
	Restore(ctx context.Context, id, ownerID string) error
	Delete(ctx context.Context, id, ownerID string) error
	ExistsName(ctx context.Context, ownerID string, folderID *string, name string) (bool, error)
	IncrementDownloadCount(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}
