package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/server/models"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/repomanager"
)

// FolderService manages the principal's folder tree.
type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewFolderService(db *sql.DB, m repomanager.RepositoryManager) *FolderService {
	return &FolderService{db: db, repomanager: m}
}

// Create adds a folder under parentID (nil for root). Names are unique
// per parent.
func (s *FolderService) Create(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("empty folder name")
	}

	repo := s.repomanager.Folders(s.db)

	if parentID != nil {
		if _, err := repo.Get(ctx, *parentID, ownerID); err != nil {
			return nil, err
		}
	}

	folder := &models.Folder{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     name,
	}
	if err := repo.Insert(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// List returns the folders directly under parentID (nil for root).
func (s *FolderService) List(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).ListByParent(ctx, ownerID, parentID)
}

// Delete removes an empty folder. A folder holding files or subfolders
// cannot be deleted.
func (s *FolderService) Delete(ctx context.Context, ownerID, id string) error {
	repo := s.repomanager.Folders(s.db)

	if _, err := repo.Get(ctx, id, ownerID); err != nil {
		return err
	}

	empty, err := repo.IsEmpty(ctx, id)
	if err != nil {
		return fmt.Errorf("checking folder contents: %w", err)
	}
	if !empty {
		return common.ErrFolderNotEmpty
	}

	return repo.Delete(ctx, id, ownerID)
}
