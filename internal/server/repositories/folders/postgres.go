package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/dbx"
	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// PostgresRepository implements folder storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanFolder(row interface{ Scan(dest ...any) error }) (*models.Folder, error) {
	var f models.Folder
	var parentID sql.NullString
	if err := row.Scan(&f.ID, &f.OwnerID, &parentID, &f.Name, &f.CreatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		f.ParentID = &parentID.String
	}
	return &f, nil
}

// Insert creates a folder. A (owner, parent, name) collision surfaces as
// ErrDuplicateName via the unique constraint.
func (r *PostgresRepository) Insert(ctx context.Context, f *models.Folder) error {
	query := `INSERT INTO folders (id, owner_id, parent_id, name) VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, parent_id, name) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, f.ID, f.OwnerID, f.ParentID, f.Name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrDuplicateName
	}
	return nil
}

// Get returns the folder owned by ownerID.
func (r *PostgresRepository) Get(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	query := `SELECT id, owner_id, parent_id, name, created_at FROM folders WHERE id=$1 AND owner_id=$2`
	f, err := scanFolder(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}
	return f, nil
}

// ListByParent lists the owner's folders at one tree level; nil parentID
// selects the root level.
func (r *PostgresRepository) ListByParent(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		query := `SELECT id, owner_id, parent_id, name, created_at FROM folders
			WHERE owner_id=$1 AND parent_id IS NULL ORDER BY name`
		rows, err = r.db.QueryContext(ctx, query, ownerID)
	} else {
		query := `SELECT id, owner_id, parent_id, name, created_at FROM folders
			WHERE owner_id=$1 AND parent_id=$2 ORDER BY name`
		rows, err = r.db.QueryContext(ctx, query, ownerID, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
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

// IsEmpty reports whether the folder has neither subfolders nor files
// (trashed files still count as content).
func (r *PostgresRepository) IsEmpty(ctx context.Context, id string) (bool, error) {
	query := `SELECT NOT EXISTS (SELECT 1 FROM folders WHERE parent_id=$1)
		AND NOT EXISTS (SELECT 1 FROM files WHERE folder_id=$1)`
	var empty bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&empty); err != nil {
		return false, fmt.Errorf("failed to check folder contents: %w", err)
	}
	return empty, nil
}

// Delete removes an empty folder. Emptiness is checked by the service;
// the FK constraints are the backstop.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// CountByOwner counts all of the owner's folders.
func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders WHERE owner_id=$1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count folders: %w", err)
	}
	return n, nil
}
