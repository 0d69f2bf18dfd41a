// Package shares persists ShareLink rows.
package shares

import (
	"context"

	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// Repository is the storage contract for share links.
type Repository interface {
	Insert(ctx context.Context, s *models.ShareLink) error
	GetActiveByCode(ctx context.Context, code string) (*models.ShareLink, error)
	FindLiveByFile(ctx context.Context, fileID, ownerID string) (*models.ShareLink, error)
	ListByOwner(ctx context.Context, ownerID string, active bool) ([]*models.ShareLink, error)
	Revoke(ctx context.Context, id, ownerID string) error
	ClaimDownload(ctx context.Context, id string) error
}
