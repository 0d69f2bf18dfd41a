package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/dbx"
	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/auth"
	"github.com/avolkonsky/cloudvault/internal/server/metrics"
	"github.com/avolkonsky/cloudvault/internal/server/models"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/repomanager"
	"github.com/avolkonsky/cloudvault/internal/server/storage"
)

// FileService drives the file lifecycle: upload, listing, trash, restore
// and purge. Byte writes always precede metadata writes, and quota
// reservations bracket the window between them.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gateway     *storage.Gateway
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, gw *storage.Gateway, logger logging.Logger, mt *metrics.Metrics) *FileService {
	return &FileService{db: db, repomanager: m, gateway: gw, logger: logger, metrics: mt}
}

// StorageInfo summarizes a principal's usage for the account page.
type StorageInfo struct {
	Quota     *models.QuotaState
	FileCount int64
	Trash     *models.TrashStats
}

// Upload stores a new file for the principal.
//
// Order of operations is fixed: reserve quota, write bytes, then commit
// metadata and quota in one transaction. Any failure after the
// reservation cancels it; a failure after the byte write also deletes the
// orphaned bytes best-effort. No metadata row ever exists without bytes.
func (s *FileService) Upload(ctx context.Context, owner *auth.Principal, folderID *string, name string, data []byte, contentType string) (*models.StoredFile, error) {
	filesRepo := s.repomanager.Files(s.db)
	quotasRepo := s.repomanager.Quotas(s.db)

	if name == "" {
		return nil, fmt.Errorf("empty file name")
	}

	exists, err := filesRepo.ExistsName(ctx, owner.ID, folderID, name)
	if err != nil {
		return nil, fmt.Errorf("checking name: %w", err)
	}
	if exists {
		return nil, common.ErrDuplicateName
	}

	size := int64(len(data))

	if err := quotasRepo.Ensure(ctx, owner.ID, owner.Quota); err != nil {
		return nil, fmt.Errorf("ensuring quota row: %w", err)
	}
	if err := quotasRepo.Reserve(ctx, owner.ID, size); err != nil {
		if errors.Is(err, common.ErrQuotaExceeded) {
			s.metrics.ObserveQuotaRejection()
		}
		return nil, err
	}

	loc, err := s.gateway.Put(ctx, owner.ID, name, data, contentType)
	if err != nil {
		if cancelErr := quotasRepo.Cancel(ctx, owner.ID, size); cancelErr != nil {
			s.logger.Error(ctx, "cancelling reservation after failed put", "owner", owner.ID, "error", cancelErr)
		}
		return nil, err
	}

	file := &models.StoredFile{
		ID:           uuid.NewString(),
		OwnerID:      owner.ID,
		FolderID:     folderID,
		Name:         name,
		OriginalName: name,
		Size:         size,
		ContentType:  contentType,
		Location:     loc,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Files(tx).Insert(ctx, file); err != nil {
			return err
		}
		return s.repomanager.Quotas(tx).Commit(ctx, owner.ID, size)
	})
	if err != nil {
		// The bytes are orphaned; remove them so reconcile has less to find.
		if delErr := s.gateway.Delete(ctx, loc); delErr != nil {
			s.logger.Error(ctx, "deleting orphaned bytes after failed insert", "owner", owner.ID, "error", delErr)
		}
		if cancelErr := quotasRepo.Cancel(ctx, owner.ID, size); cancelErr != nil {
			s.logger.Error(ctx, "cancelling reservation after failed insert", "owner", owner.ID, "error", cancelErr)
		}
		return nil, fmt.Errorf("saving file metadata: %w", err)
	}

	return file, nil
}

// Get returns one active (non-trashed) file owned by the principal.
func (s *FileService) Get(ctx context.Context, ownerID, id string) (*models.StoredFile, error) {
	f, err := s.repomanager.Files(s.db).Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if f.IsDeleted {
		return nil, common.ErrNotFound
	}
	return f, nil
}

// List returns the principal's active files in folderID (nil for root).
func (s *FileService) List(ctx context.Context, ownerID string, folderID *string) ([]*models.StoredFile, error) {
	return s.repomanager.Files(s.db).ListByFolder(ctx, ownerID, folderID)
}

// Download opens the file's bytes and bumps its download counter. The
// counter bump is best-effort; a failed bump never blocks the download.
func (s *FileService) Download(ctx context.Context, ownerID, id string) (io.ReadCloser, *models.StoredFile, error) {
	f, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.gateway.Get(ctx, f.Location)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repomanager.Files(s.db).IncrementDownloadCount(ctx, f.ID); err != nil {
		s.logger.Warn(ctx, "incrementing download count", "file", f.ID, "error", err)
	}

	return rc, f, nil
}

// Trash moves an active file into the trash. The file keeps its quota
// charge until it is purged.
func (s *FileService) Trash(ctx context.Context, ownerID, id string) error {
	return s.repomanager.Files(s.db).SoftDelete(ctx, id, ownerID)
}

// Restore moves a trashed file back to its folder.
func (s *FileService) Restore(ctx context.Context, ownerID, id string) error {
	return s.repomanager.Files(s.db).Restore(ctx, id, ownerID)
}

// ListTrash returns the principal's trashed files.
func (s *FileService) ListTrash(ctx context.Context, ownerID string) ([]*models.StoredFile, error) {
	return s.repomanager.Files(s.db).ListTrashed(ctx, ownerID)
}

// TrashStats returns the count and total size of the principal's trash.
func (s *FileService) TrashStats(ctx context.Context, ownerID string) (*models.TrashStats, error) {
	return s.repomanager.Files(s.db).TrashStats(ctx, ownerID)
}

// Purge permanently removes a trashed file: backend bytes best-effort,
// then the metadata row and the quota charge in one transaction. A backend
// delete failure is logged and does not keep the row alive; the storage
// sweep reclaims stragglers.
func (s *FileService) Purge(ctx context.Context, ownerID, id string) error {
	f, err := s.repomanager.Files(s.db).Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !f.IsDeleted {
		return common.ErrNotFound
	}
	_, err = s.purgeOne(ctx, f)
	return err
}

// purgeOne removes one file's bytes and metadata. backendFailed reports a
// backend delete that left the bytes behind; the metadata is removed
// regardless, and the storage sweep reclaims the stragglers.
func (s *FileService) purgeOne(ctx context.Context, f *models.StoredFile) (backendFailed bool, err error) {
	if err := s.gateway.Delete(ctx, f.Location); err != nil && !errors.Is(err, common.ErrObjectNotFound) {
		backendFailed = true
		s.logger.Warn(ctx, "backend delete failed during purge", "file", f.ID, "error", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Files(tx).Delete(ctx, f.ID, f.OwnerID); err != nil {
			return err
		}
		return s.repomanager.Quotas(tx).Release(ctx, f.OwnerID, f.Size)
	})
	return backendFailed, err
}

// EmptyTrash purges every trashed file. One file failing does not abort
// the batch; the report counts purged rows, freed bytes and backend
// deletes that failed.
func (s *FileService) EmptyTrash(ctx context.Context, ownerID string) (*models.PurgeReport, error) {
	trashed, err := s.repomanager.Files(s.db).ListTrashed(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	report := &models.PurgeReport{}
	for _, f := range trashed {
		backendFailed, err := s.purgeOne(ctx, f)
		if backendFailed {
			report.BackendErrors++
		}
		if err != nil {
			s.logger.Error(ctx, "purging trashed file", "file", f.ID, "error", err)
			continue
		}
		report.PurgedCount++
		report.FreedBytes += f.Size
	}
	return report, nil
}

// Info returns the principal's storage summary, creating the ledger row
// with the token's quota ceiling when absent.
func (s *FileService) Info(ctx context.Context, owner *auth.Principal) (*StorageInfo, error) {
	quotasRepo := s.repomanager.Quotas(s.db)
	filesRepo := s.repomanager.Files(s.db)

	if err := quotasRepo.Ensure(ctx, owner.ID, owner.Quota); err != nil {
		return nil, err
	}
	state, err := quotasRepo.Get(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	count, err := filesRepo.CountByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	stats, err := filesRepo.TrashStats(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return &StorageInfo{Quota: state, FileCount: count, Trash: stats}, nil
}

// SaveShared copies a file obtained through a share link into the
// principal's own space. src must come from a share verification done in
// the same request. The copy is charged to the principal's quota and gets
// fresh bytes under their ownership.
func (s *FileService) SaveShared(ctx context.Context, owner *auth.Principal, src *models.StoredFile, folderID *string) (*models.StoredFile, error) {
	exists, err := s.repomanager.Files(s.db).ExistsName(ctx, owner.ID, folderID, src.Name)
	if err != nil {
		return nil, fmt.Errorf("checking name: %w", err)
	}
	if exists {
		return nil, common.ErrDuplicateName
	}

	rc, err := s.gateway.Get(ctx, src.Location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading shared bytes: %w", err)
	}

	return s.Upload(ctx, owner, folderID, src.Name, data, src.ContentType)
}
