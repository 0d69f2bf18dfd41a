package services

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/server/auth"
	"github.com/avolkonsky/cloudvault/internal/server/models"
)

func testOwner() *auth.Principal {
	return &auth.Principal{ID: "u1", Quota: 1 << 20}
}

func TestUpload_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	remote := &fakeRemote{}
	rm := &fakeRepoManager{files: &fakeFilesRepo{}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	data := []byte("hello world")
	f, err := s.Upload(context.Background(), testOwner(), nil, "notes.txt", data, "text/plain")
	require.NoError(t, err)
	require.EqualValues(t, len(data), f.Size)
	require.Equal(t, models.BackendRemote, f.Location.Backend)
	require.Len(t, rm.files.inserted, 1)
	require.Equal(t, []int64{int64(len(data))}, rm.quotas.reserved)
	require.Equal(t, []int64{int64(len(data))}, rm.quotas.committed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpload_DuplicateName(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{files: &fakeFilesRepo{exists: true}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	_, err := s.Upload(context.Background(), testOwner(), nil, "notes.txt", []byte("x"), "text/plain")
	require.ErrorIs(t, err, common.ErrDuplicateName)
	require.Empty(t, rm.quotas.reserved)
}

func TestUpload_QuotaExceeded(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		files:  &fakeFilesRepo{},
		quotas: &fakeQuotasRepo{reserveErr: common.ErrQuotaExceeded},
	}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	_, err := s.Upload(context.Background(), testOwner(), nil, "big.bin", []byte("xxxx"), "application/octet-stream")
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
}

func TestUpload_PutFails_CancelsReservation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	remote := &fakeRemote{putErr: errBoom{}}
	rm := &fakeRepoManager{files: &fakeFilesRepo{}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	_, err := s.Upload(context.Background(), testOwner(), nil, "a.txt", []byte("abc"), "text/plain")
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	require.Equal(t, []int64{3}, rm.quotas.cancelled)
	require.Empty(t, rm.files.inserted)
}

func TestUpload_InsertFails_DeletesBytesAndCancels(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	remote := &fakeRemote{}
	rm := &fakeRepoManager{
		files:  &fakeFilesRepo{insertErr: errBoom{}},
		quotas: &fakeQuotasRepo{},
	}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	_, err := s.Upload(context.Background(), testOwner(), nil, "a.txt", []byte("abc"), "text/plain")
	require.Error(t, err)
	require.Len(t, remote.deleted, 1)
	require.Len(t, rm.quotas.cancelled, 1)
}

func TestDownload_StreamsAndCounts(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	remote := &fakeRemote{objects: map[string][]byte{"c/k": []byte("payload")}}
	file := &models.StoredFile{
		ID: "f1", OwnerID: "u1", Name: "a.txt", Size: 7,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k"},
	}
	rm := &fakeRepoManager{files: &fakeFilesRepo{byID: map[string]*models.StoredFile{"f1": file}}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	rc, got, err := s.Download(context.Background(), "u1", "f1")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
	require.Equal(t, "f1", got.ID)
	require.Len(t, rm.files.incremented, 1)
}

func TestDownload_TrashedFileHidden(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	file := &models.StoredFile{ID: "f1", OwnerID: "u1", IsDeleted: true}
	rm := &fakeRepoManager{files: &fakeFilesRepo{byID: map[string]*models.StoredFile{"f1": file}}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	_, _, err := s.Download(context.Background(), "u1", "f1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPurge_ReleasesQuota(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	remote := &fakeRemote{objects: map[string][]byte{"c/k": []byte("x")}}
	file := &models.StoredFile{
		ID: "f1", OwnerID: "u1", Size: 100, IsDeleted: true,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k"},
	}
	rm := &fakeRepoManager{files: &fakeFilesRepo{byID: map[string]*models.StoredFile{"f1": file}}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	require.NoError(t, s.Purge(context.Background(), "u1", "f1"))
	require.Len(t, rm.files.deleted, 1)
	require.Equal(t, []int64{100}, rm.quotas.released)
	require.Len(t, remote.deleted, 1)
}

func TestPurge_ActiveFileRefused(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	file := &models.StoredFile{ID: "f1", OwnerID: "u1"}
	rm := &fakeRepoManager{files: &fakeFilesRepo{byID: map[string]*models.StoredFile{"f1": file}}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	err := s.Purge(context.Background(), "u1", "f1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPurge_BackendDeleteFailureStillRemovesRow(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	remote := &fakeRemote{delErr: errBoom{}}
	file := &models.StoredFile{
		ID: "f1", OwnerID: "u1", Size: 5, IsDeleted: true,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k"},
	}
	rm := &fakeRepoManager{files: &fakeFilesRepo{byID: map[string]*models.StoredFile{"f1": file}}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	require.NoError(t, s.Purge(context.Background(), "u1", "f1"))
	require.Len(t, rm.files.deleted, 1)
	require.Len(t, rm.quotas.released, 1)
}

func TestEmptyTrash_PurgesAll(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	f1 := &models.StoredFile{ID: "f1", OwnerID: "u1", Size: 10, IsDeleted: true,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k1"}}
	f2 := &models.StoredFile{ID: "f2", OwnerID: "u1", Size: 20, IsDeleted: true,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k2"}}

	files := &fakeFilesRepo{
		byID:       map[string]*models.StoredFile{"f1": f1, "f2": f2},
		trashedOut: []*models.StoredFile{f1, f2},
	}
	rm := &fakeRepoManager{files: files, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	report, err := s.EmptyTrash(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 2, report.PurgedCount)
	require.EqualValues(t, 30, report.FreedBytes)
	require.EqualValues(t, 0, report.BackendErrors)
}

func TestEmptyTrash_ReportsBackendDeleteFailures(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	f1 := &models.StoredFile{ID: "f1", OwnerID: "u1", Size: 10, IsDeleted: true,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k1"}}
	f2 := &models.StoredFile{ID: "f2", OwnerID: "u1", Size: 20, IsDeleted: true,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k2"}}

	remote := &fakeRemote{delErr: errBoom{}}
	files := &fakeFilesRepo{
		byID:       map[string]*models.StoredFile{"f1": f1, "f2": f2},
		trashedOut: []*models.StoredFile{f1, f2},
	}
	rm := &fakeRepoManager{files: files, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	report, err := s.EmptyTrash(context.Background(), "u1")
	require.NoError(t, err)

	// The rows still go and the quota is still released, but the stranded
	// bytes are visible in the report.
	require.EqualValues(t, 2, report.PurgedCount)
	require.EqualValues(t, 30, report.FreedBytes)
	require.EqualValues(t, 2, report.BackendErrors)
	require.Len(t, rm.files.deleted, 2)
}

func TestEmptyTrash_ContinuesPastRowDeleteFailure(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()

	f1 := &models.StoredFile{ID: "f1", OwnerID: "u1", Size: 10, IsDeleted: true,
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k1"}}

	files := &fakeFilesRepo{
		byID:       map[string]*models.StoredFile{"f1": f1},
		trashedOut: []*models.StoredFile{f1, f1},
		deleteErr:  errBoom{},
	}
	rm := &fakeRepoManager{files: files, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	report, err := s.EmptyTrash(context.Background(), "u1")
	require.NoError(t, err)
	require.EqualValues(t, 0, report.PurgedCount)
	require.EqualValues(t, 0, report.BackendErrors)
}

func TestSaveShared_CopiesIntoOwnSpace(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	remote := &fakeRemote{objects: map[string][]byte{"c/k": []byte("shared bytes")}}
	src := &models.StoredFile{
		ID: "src", OwnerID: "other", Name: "doc.pdf", Size: 12, ContentType: "application/pdf",
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k"},
	}
	rm := &fakeRepoManager{files: &fakeFilesRepo{}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(remote), testLogger(), nil)

	got, err := s.SaveShared(context.Background(), testOwner(), src, nil)
	require.NoError(t, err)
	require.Equal(t, "u1", got.OwnerID)
	require.Equal(t, "doc.pdf", got.Name)
	require.EqualValues(t, 12, got.Size)
	require.Equal(t, []int64{12}, rm.quotas.committed)
}

func TestSaveShared_DuplicateName(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	src := &models.StoredFile{ID: "src", Name: "doc.pdf",
		Location: models.Location{Backend: models.BackendRemote, Container: "c", Key: "k"}}
	rm := &fakeRepoManager{files: &fakeFilesRepo{exists: true}, quotas: &fakeQuotasRepo{}}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	_, err := s.SaveShared(context.Background(), testOwner(), src, nil)
	require.ErrorIs(t, err, common.ErrDuplicateName)
}

func TestInfo_Summary(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		files: &fakeFilesRepo{countOut: 4, statsOut: &models.TrashStats{Count: 1, TotalBytes: 50}},
		quotas: &fakeQuotasRepo{
			state: &models.QuotaState{OwnerID: "u1", Quota: 1000, Used: 300, Reserved: 0},
		},
	}
	s := NewFileService(db, rm, newTestGateway(&fakeRemote{}), testLogger(), nil)

	info, err := s.Info(context.Background(), testOwner())
	require.NoError(t, err)
	require.EqualValues(t, 4, info.FileCount)
	require.EqualValues(t, 300, info.Quota.Used)
	require.EqualValues(t, 1, info.Trash.Count)
	require.EqualValues(t, 700, info.Quota.Available())
}
