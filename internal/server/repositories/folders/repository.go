// Package folders persists Folder rows.
package folders

import (
	"context"

	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// Repository is the storage contract for folders.
type Repository interface {
	Insert(ctx context.Context, f *models.Folder) error
	Get(ctx context.Context, id, ownerID string) (*models.Folder, error)
	ListByParent(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error)
	IsEmpty(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id, ownerID string) error
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}
