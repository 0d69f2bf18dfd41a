package quotas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/dbx"
	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// PostgresRepository implements the quota ledger over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ensure creates the ledger row on first use and keeps the ceiling in sync
// with the externally supplied quota.
func (r *PostgresRepository) Ensure(ctx context.Context, ownerID string, quota int64) error {
	query := `INSERT INTO user_quotas (user_id, quota) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET quota = EXCLUDED.quota`
	if _, err := r.db.ExecContext(ctx, query, ownerID, quota); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the current ledger state for the principal.
func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (*models.QuotaState, error) {
	query := `SELECT user_id, quota, used, reserved FROM user_quotas WHERE user_id=$1`
	s := &models.QuotaState{}
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&s.OwnerID, &s.Quota, &s.Used, &s.Reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select quota: %w", err)
	}
	return s, nil
}

// Reserve claims delta bytes ahead of a storage write. The ceiling check
// and the increment run in one statement; zero rows means the reservation
// would exceed the quota.
func (r *PostgresRepository) Reserve(ctx context.Context, ownerID string, delta int64) error {
	query := `UPDATE user_quotas SET reserved = reserved + $2
		WHERE user_id=$1 AND used + reserved + $2 <= quota`
	res, err := r.db.ExecContext(ctx, query, ownerID, delta)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrQuotaExceeded
	}
	return nil
}

// Commit converts a reservation into usage after the storage write
// succeeded.
func (r *PostgresRepository) Commit(ctx context.Context, ownerID string, delta int64) error {
	query := `UPDATE user_quotas
		SET used = used + $2, reserved = GREATEST(reserved - $2, 0)
		WHERE user_id=$1`
	return r.execExpectingRow(ctx, query, ownerID, delta)
}

// Cancel backs out a reservation after the storage write failed.
func (r *PostgresRepository) Cancel(ctx context.Context, ownerID string, delta int64) error {
	query := `UPDATE user_quotas SET reserved = GREATEST(reserved - $2, 0) WHERE user_id=$1`
	return r.execExpectingRow(ctx, query, ownerID, delta)
}

// Release frees usage when a file's metadata row is removed. Usage never
// goes negative even if the ledger had drifted.
func (r *PostgresRepository) Release(ctx context.Context, ownerID string, delta int64) error {
	query := `UPDATE user_quotas SET used = GREATEST(used - $2, 0) WHERE user_id=$1`
	return r.execExpectingRow(ctx, query, ownerID, delta)
}

// Reconcile recomputes used from the authoritative non-deleted file set and
// drops any stale reservations, in a single statement so it is idempotent
// and safe to run under concurrent traffic. Returns the corrected usage.
func (r *PostgresRepository) Reconcile(ctx context.Context, ownerID string) (int64, error) {
	query := `UPDATE user_quotas q
		SET used = COALESCE(
				(SELECT SUM(f.size) FROM files f WHERE f.owner_id = q.user_id AND NOT f.is_deleted), 0),
			reserved = 0
		WHERE q.user_id = $1
		RETURNING used`
	var used int64
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile quota: %w", err)
	}
	return used, nil
}

// ListOwners returns every principal with a ledger row.
func (r *PostgresRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM user_quotas ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select owners: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
