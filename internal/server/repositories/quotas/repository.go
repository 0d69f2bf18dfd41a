// Package quotas persists the per-principal storage ledger.
package quotas

import (
	"context"

	"github.com/avolkonsky/cloudvault/internal/server/models"
)

// Repository is the ledger contract. All mutations are single guarded
// statements: the check and the counter change never run as separate
// read-then-write steps.
type Repository interface {
	Ensure(ctx context.Context, ownerID string, quota int64) error
	Get(ctx context.Context, ownerID string) (*models.QuotaState, error)
	Reserve(ctx context.Context, ownerID string, delta int64) error
	Commit(ctx context.Context, ownerID string, delta int64) error
	Cancel(ctx context.Context, ownerID string, delta int64) error
	Release(ctx context.Context, ownerID string, delta int64) error
	Reconcile(ctx context.Context, ownerID string) (int64, error)
	ListOwners(ctx context.Context) ([]string, error)
}
