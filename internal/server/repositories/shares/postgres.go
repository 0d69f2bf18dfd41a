package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/dbx"
	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// PostgresRepository implements share storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const shareColumns = `id, file_id, owner_id, share_code, password, is_active,
		expire_at, max_downloads, download_count, created_at`

func scanShare(row interface{ Scan(dest ...any) error }) (*models.ShareLink, error) {
	var s models.ShareLink
	var expireAt sql.NullTime
	var maxDownloads sql.NullInt64
	err := row.Scan(&s.ID, &s.FileID, &s.OwnerID, &s.ShareCode, &s.Password, &s.IsActive,
		&expireAt, &maxDownloads, &s.DownloadCount, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expireAt.Valid {
		t := expireAt.Time
		s.ExpireAt = &t
	}
	if maxDownloads.Valid {
		n := maxDownloads.Int64
		s.MaxDownloads = &n
	}
	return &s, nil
}

// Insert persists a new share link.
func (r *PostgresRepository) Insert(ctx context.Context, s *models.ShareLink) error {
	query := `
		INSERT INTO shares (id, file_id, owner_id, share_code, password, expire_at, max_downloads)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.FileID, s.OwnerID, s.ShareCode, s.Password, s.ExpireAt, s.MaxDownloads)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetActiveByCode returns the non-revoked share with the given code.
// Expiry is evaluated by the caller, not here: revoked and expired shares
// are different states.
func (r *PostgresRepository) GetActiveByCode(ctx context.Context, code string) (*models.ShareLink, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE share_code=$1 AND is_active`
	s, err := scanShare(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select share: %w", err)
	}
	return s, nil
}

// FindLiveByFile returns an active, unexpired share for the file+owner, or
// ErrShareNotFound. Used to block duplicate live shares.
func (r *PostgresRepository) FindLiveByFile(ctx context.Context, fileID, ownerID string) (*models.ShareLink, error) {
	query := `SELECT ` + shareColumns + ` FROM shares
		WHERE file_id=$1 AND owner_id=$2 AND is_active
			AND (expire_at IS NULL OR expire_at > now())
			AND (max_downloads IS NULL OR download_count < max_downloads)
		LIMIT 1`
	s, err := scanShare(r.db.QueryRowContext(ctx, query, fileID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select share: %w", err)
	}
	return s, nil
}

// ListByOwner returns the owner's shares split by the soft-revocation flag,
// newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, active bool) ([]*models.ShareLink, error) {
	query := `SELECT ` + shareColumns + ` FROM shares
		WHERE owner_id=$1 AND is_active=$2 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID, active)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	defer rows.Close()

	var result []*models.ShareLink
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Revoke flips is_active off. The row is kept for the owner's history.
func (r *PostgresRepository) Revoke(ctx context.Context, id, ownerID string) error {
	query := `UPDATE shares SET is_active=FALSE WHERE id=$1 AND owner_id=$2 AND is_active`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrShareNotFound
	}
	return nil
}

// ClaimDownload increments download_count only while the share is still
// active, unexpired, and under its cap. The predicate and the increment run
// as one statement, so concurrent downloads of a share with a cap of one
// cannot both claim the last slot. Returns ErrDownloadLimitReached when no
// slot was claimed.
func (r *PostgresRepository) ClaimDownload(ctx context.Context, id string) error {
	query := `UPDATE shares SET download_count=download_count+1
		WHERE id=$1 AND is_active
			AND (expire_at IS NULL OR expire_at > now())
			AND (max_downloads IS NULL OR download_count < max_downloads)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrDownloadLimitReached
	}
	return nil
}
