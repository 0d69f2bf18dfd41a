// Package services implements the application logic on top of the
// repositories and the storage gateway. Services own transaction
// boundaries; repositories never start transactions themselves.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/models"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/repomanager"
)

// QuotaService exposes the per-principal storage ledger.
type QuotaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewQuotaService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *QuotaService {
	return &QuotaService{db: db, repomanager: m, logger: logger}
}

// State returns the current ledger row for a principal, creating it with
// the given quota ceiling on first contact.
func (s *QuotaService) State(ctx context.Context, ownerID string, quota int64) (*models.QuotaState, error) {
	repo := s.repomanager.Quotas(s.db)
	if err := repo.Ensure(ctx, ownerID, quota); err != nil {
		return nil, fmt.Errorf("ensuring quota row: %w", err)
	}
	return repo.Get(ctx, ownerID)
}

// ReconcileResult records one principal's ledger correction.
type ReconcileResult struct {
	OwnerID string
	OldUsed int64
	NewUsed int64
}

// Reconcile recomputes a principal's used counter from the file rows and
// clears any stale reservation. It returns the before and after values.
func (s *QuotaService) Reconcile(ctx context.Context, ownerID string) (*ReconcileResult, error) {
	repo := s.repomanager.Quotas(s.db)

	state, err := repo.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("reading ledger for %s: %w", ownerID, err)
	}

	newUsed, err := repo.Reconcile(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("reconciling ledger for %s: %w", ownerID, err)
	}

	return &ReconcileResult{OwnerID: ownerID, OldUsed: state.Used, NewUsed: newUsed}, nil
}

// ReconcileAll walks every known ledger row. A failure on one principal is
// logged and does not stop the sweep.
func (s *QuotaService) ReconcileAll(ctx context.Context) ([]*ReconcileResult, error) {
	repo := s.repomanager.Quotas(s.db)

	owners, err := repo.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing ledger owners: %w", err)
	}

	results := make([]*ReconcileResult, 0, len(owners))
	for _, owner := range owners {
		r, err := s.Reconcile(ctx, owner)
		if err != nil {
			s.logger.Error(ctx, "reconcile failed", "owner", owner, "error", err)
			continue
		}
		results = append(results, r)
	}
	return results, nil
}
