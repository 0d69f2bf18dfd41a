// Package repomanager wires concrete repositories to database handles.
// Services ask the manager for a repository bound to either the pool or a
// transaction, so the same SQL runs inside and outside dbx.WithTx.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avolkonsky/cloudvault/internal/dbx"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/files"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/folders"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/quotas"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/shares"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Folders(db dbx.DBTX) folders.Repository
	Shares(db dbx.DBTX) shares.Repository
	Quotas(db dbx.DBTX) quotas.Repository
}
