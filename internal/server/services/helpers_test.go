package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/dbx"
	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/metrics"
	"github.com/avolkonsky/cloudvault/internal/server/models"
	filesrepo "github.com/avolkonsky/cloudvault/internal/server/repositories/files"
	foldersrepo "github.com/avolkonsky/cloudvault/internal/server/repositories/folders"
	quotasrepo "github.com/avolkonsky/cloudvault/internal/server/repositories/quotas"
	sharesrepo "github.com/avolkonsky/cloudvault/internal/server/repositories/shares"
	"github.com/avolkonsky/cloudvault/internal/server/storage"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestGateway(remote *fakeRemote) *storage.Gateway {
	return storage.NewGateway(remote, nil, 0, testLogger(), metrics.New())
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- fake remote backend ---

type fakeRemote struct {
	putErr  error
	getErr  error
	delErr  error
	objects map[string][]byte
	deleted []string
}

func (f *fakeRemote) EnsureContainer(ctx context.Context, container string) error { return nil }

func (f *fakeRemote) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[container+"/"+key] = data
	return nil
}

func (f *fakeRemote) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[container+"/"+key]
	if !ok {
		return nil, common.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeRemote) Delete(ctx context.Context, container, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, container+"/"+key)
	delete(f.objects, container+"/"+key)
	return nil
}

// --- fake repositories ---

type fakeFilesRepo struct {
	byID map[string]*models.StoredFile

	insertErr error
	inserted  []*models.StoredFile

	exists    bool
	existsErr error

	listOut    []*models.StoredFile
	trashedOut []*models.StoredFile
	statsOut   *models.TrashStats
	countOut   int64

	softDeleted []string
	restored    []string
	deleted     []string
	deleteErr   error

	incremented  []string
	incrementErr error
}

func (f *fakeFilesRepo) Insert(ctx context.Context, file *models.StoredFile) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, file)
	return nil
}

func (f *fakeFilesRepo) Get(ctx context.Context, id, ownerID string) (*models.StoredFile, error) {
	file, ok := f.byID[id]
	if !ok || file.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.StoredFile, error) {
	file, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return file, nil
}

func (f *fakeFilesRepo) ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]*models.StoredFile, error) {
	return f.listOut, nil
}

func (f *fakeFilesRepo) ListTrashed(ctx context.Context, ownerID string) ([]*models.StoredFile, error) {
	return f.trashedOut, nil
}

func (f *fakeFilesRepo) TrashStats(ctx context.Context, ownerID string) (*models.TrashStats, error) {
	if f.statsOut == nil {
		return &models.TrashStats{}, nil
	}
	return f.statsOut, nil
}

func (f *fakeFilesRepo) SoftDelete(ctx context.Context, id, ownerID string) error {
	f.softDeleted = append(f.softDeleted, id)
	return nil
}

func (f *fakeFilesRepo) Restore(ctx context.Context, id, ownerID string) error {
	f.restored = append(f.restored, id)
	return nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id, ownerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFilesRepo) ExistsName(ctx context.Context, ownerID string, folderID *string, name string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.exists, nil
}

func (f *fakeFilesRepo) IncrementDownloadCount(ctx context.Context, id string) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	f.incremented = append(f.incremented, id)
	return nil
}

func (f *fakeFilesRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	return f.countOut, nil
}

type fakeQuotasRepo struct {
	state *models.QuotaState

	ensureErr  error
	reserveErr error
	commitErr  error
	cancelErr  error
	releaseErr error

	reserved  []int64
	committed []int64
	cancelled []int64
	released  []int64

	reconcileOut int64
	owners       []string
}

func (f *fakeQuotasRepo) Ensure(ctx context.Context, ownerID string, quota int64) error {
	return f.ensureErr
}

func (f *fakeQuotasRepo) Get(ctx context.Context, ownerID string) (*models.QuotaState, error) {
	if f.state == nil {
		return nil, common.ErrNotFound
	}
	return f.state, nil
}

func (f *fakeQuotasRepo) Reserve(ctx context.Context, ownerID string, delta int64) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.reserved = append(f.reserved, delta)
	return nil
}

func (f *fakeQuotasRepo) Commit(ctx context.Context, ownerID string, delta int64) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, delta)
	return nil
}

func (f *fakeQuotasRepo) Cancel(ctx context.Context, ownerID string, delta int64) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, delta)
	return nil
}

func (f *fakeQuotasRepo) Release(ctx context.Context, ownerID string, delta int64) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.released = append(f.released, delta)
	return nil
}

func (f *fakeQuotasRepo) Reconcile(ctx context.Context, ownerID string) (int64, error) {
	return f.reconcileOut, nil
}

func (f *fakeQuotasRepo) ListOwners(ctx context.Context) ([]string, error) {
	return f.owners, nil
}

type fakeSharesRepo struct {
	byCode map[string]*models.ShareLink
	live   *models.ShareLink

	insertErr error
	inserted  []*models.ShareLink

	listOut []*models.ShareLink

	claimErr error
	claimed  []string

	revoked []string
}

func (f *fakeSharesRepo) Insert(ctx context.Context, s *models.ShareLink) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, s)
	return nil
}

func (f *fakeSharesRepo) GetActiveByCode(ctx context.Context, code string) (*models.ShareLink, error) {
	s, ok := f.byCode[code]
	if !ok {
		return nil, common.ErrShareNotFound
	}
	return s, nil
}

func (f *fakeSharesRepo) FindLiveByFile(ctx context.Context, fileID, ownerID string) (*models.ShareLink, error) {
	if f.live == nil {
		return nil, common.ErrShareNotFound
	}
	return f.live, nil
}

func (f *fakeSharesRepo) ListByOwner(ctx context.Context, ownerID string, active bool) ([]*models.ShareLink, error) {
	return f.listOut, nil
}

func (f *fakeSharesRepo) Revoke(ctx context.Context, id, ownerID string) error {
	f.revoked = append(f.revoked, id)
	return nil
}

func (f *fakeSharesRepo) ClaimDownload(ctx context.Context, id string) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	f.claimed = append(f.claimed, id)
	return nil
}

type fakeFoldersRepo struct {
	byID map[string]*models.Folder

	insertErr error
	inserted  []*models.Folder

	listOut []*models.Folder

	empty   bool
	deleted []string
}

func (f *fakeFoldersRepo) Insert(ctx context.Context, folder *models.Folder) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, folder)
	return nil
}

func (f *fakeFoldersRepo) Get(ctx context.Context, id, ownerID string) (*models.Folder, error) {
	folder, ok := f.byID[id]
	if !ok || folder.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	return folder, nil
}

func (f *fakeFoldersRepo) ListByParent(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	return f.listOut, nil
}

func (f *fakeFoldersRepo) IsEmpty(ctx context.Context, id string) (bool, error) {
	return f.empty, nil
}

func (f *fakeFoldersRepo) Delete(ctx context.Context, id, ownerID string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFoldersRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	return int64(len(f.byID)), nil
}

// --- fake repomanager ---

type fakeRepoManager struct {
	files   *fakeFilesRepo
	folders *fakeFoldersRepo
	shares  *fakeSharesRepo
	quotas  *fakeQuotasRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository       { return m.files }
func (m *fakeRepoManager) Folders(db dbx.DBTX) foldersrepo.Repository   { return m.folders }
func (m *fakeRepoManager) Shares(db dbx.DBTX) sharesrepo.Repository     { return m.shares }
func (m *fakeRepoManager) Quotas(db dbx.DBTX) quotasrepo.Repository     { return m.quotas }
