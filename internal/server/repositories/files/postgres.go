package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/dbx"
	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, owner_id, folder_id, name, original_name, size, content_type,
		backend, container, object_key, local_path,
		is_deleted, deleted_at, download_count, created_at, updated_at`

func scanFile(row interface{ Scan(dest ...any) error }) (*models.StoredFile, error) {
	var f models.StoredFile
	var folderID sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&f.ID, &f.OwnerID, &folderID, &f.Name, &f.OriginalName, &f.Size, &f.ContentType,
		&f.Location.Backend, &f.Location.Container, &f.Location.Key, &f.Location.Path,
		&f.IsDeleted, &deletedAt, &f.DownloadCount, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if folderID.Valid {
		f.FolderID = &folderID.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		f.DeletedAt = &t
	}
	return &f, nil
}

// Insert creates the metadata row for freshly stored bytes.
func (r *PostgresRepository) Insert(ctx context.Context, f *models.StoredFile) error {
	query := `
		INSERT INTO files (id, owner_id, folder_id, name, original_name, size, content_type,
			backend, container, object_key, local_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.OwnerID, f.FolderID, f.Name, f.OriginalName, f.Size, f.ContentType,
		f.Location.Backend, f.Location.Container, f.Location.Key, f.Location.Path)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the file with the given id owned by ownerID, trashed or not.
func (r *PostgresRepository) Get(ctx context.Context, id, ownerID string) (*models.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id=$1 AND owner_id=$2`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

// GetByID returns the file regardless of owner. Used on the public share
// path where the caller is anonymous.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id=$1`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) queryFiles(ctx context.Context, query string, args ...any) ([]*models.StoredFile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByFolder returns non-deleted files at one folder level; a nil folderID
// selects the root level.
func (r *PostgresRepository) ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]*models.StoredFile, error) {
	if folderID == nil {
		query := `SELECT ` + fileColumns + ` FROM files
			WHERE owner_id=$1 AND folder_id IS NULL AND NOT is_deleted ORDER BY created_at DESC`
		return r.queryFiles(ctx, query, ownerID)
	}
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id=$1 AND folder_id=$2 AND NOT is_deleted ORDER BY created_at DESC`
	return r.queryFiles(ctx, query, ownerID, *folderID)
}

// ListTrashed returns the principal's trashed files, newest deletions first.
func (r *PostgresRepository) ListTrashed(ctx context.Context, ownerID string) ([]*models.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id=$1 AND is_deleted ORDER BY deleted_at DESC`
	return r.queryFiles(ctx, query, ownerID)
}

// TrashStats counts the principal's trashed files and their total size.
func (r *PostgresRepository) TrashStats(ctx context.Context, ownerID string) (*models.TrashStats, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files WHERE owner_id=$1 AND is_deleted`
	s := &models.TrashStats{}
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&s.Count, &s.TotalBytes); err != nil {
		return nil, fmt.Errorf("failed to select trash stats: %w", err)
	}
	return s, nil
}

// SoftDelete moves an active file to the trash. is_deleted and deleted_at
// change together so the lifecycle invariant holds in a single statement.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	query := `UPDATE files SET is_deleted=TRUE, deleted_at=now(), updated_at=now()
		WHERE id=$1 AND owner_id=$2 AND NOT is_deleted`
	return r.execExpectingOneRow(ctx, query, id, ownerID)
}

// Restore brings a trashed file back to the active state.
func (r *PostgresRepository) Restore(ctx context.Context, id, ownerID string) error {
	query := `UPDATE files SET is_deleted=FALSE, deleted_at=NULL, updated_at=now()
		WHERE id=$1 AND owner_id=$2 AND is_deleted`
	return r.execExpectingOneRow(ctx, query, id, ownerID)
}

// Delete removes the metadata row of a trashed file permanently.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM files WHERE id=$1 AND owner_id=$2 AND is_deleted`
	return r.execExpectingOneRow(ctx, query, id, ownerID)
}

// ExistsName reports whether the owner already has a non-deleted file with
// the given name at the given folder level.
func (r *PostgresRepository) ExistsName(ctx context.Context, ownerID string, folderID *string, name string) (bool, error) {
	var exists bool
	var err error
	if folderID == nil {
		query := `SELECT EXISTS (SELECT 1 FROM files
			WHERE owner_id=$1 AND folder_id IS NULL AND name=$2 AND NOT is_deleted)`
		err = r.db.QueryRowContext(ctx, query, ownerID, name).Scan(&exists)
	} else {
		query := `SELECT EXISTS (SELECT 1 FROM files
			WHERE owner_id=$1 AND folder_id=$2 AND name=$3 AND NOT is_deleted)`
		err = r.db.QueryRowContext(ctx, query, ownerID, *folderID, name).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return exists, nil
}

// IncrementDownloadCount bumps the owner-facing download counter.
func (r *PostgresRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	query := `UPDATE files SET download_count=download_count+1, updated_at=now() WHERE id=$1`
	return r.execExpectingOneRow(ctx, query, id)
}

// CountByOwner counts all of the owner's files, trash included.
func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE owner_id=$1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) execExpectingOneRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
