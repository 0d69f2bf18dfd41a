package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/server/models"
)

func TestFolderCreate_Root(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{folders: &fakeFoldersRepo{}}
	s := NewFolderService(db, rm)

	folder, err := s.Create(context.Background(), "u1", nil, "docs")
	require.NoError(t, err)
	require.Equal(t, "docs", folder.Name)
	require.Nil(t, folder.ParentID)
	require.Len(t, rm.folders.inserted, 1)
}

func TestFolderCreate_MissingParent(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{folders: &fakeFoldersRepo{}}
	s := NewFolderService(db, rm)

	parent := "nope"
	_, err := s.Create(context.Background(), "u1", &parent, "docs")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFolderCreate_DuplicateName(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{folders: &fakeFoldersRepo{insertErr: common.ErrDuplicateName}}
	s := NewFolderService(db, rm)

	_, err := s.Create(context.Background(), "u1", nil, "docs")
	require.ErrorIs(t, err, common.ErrDuplicateName)
}

func TestFolderDelete_Empty(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{folders: &fakeFoldersRepo{
		byID:  map[string]*models.Folder{"d1": {ID: "d1", OwnerID: "u1", Name: "docs"}},
		empty: true,
	}}
	s := NewFolderService(db, rm)

	require.NoError(t, s.Delete(context.Background(), "u1", "d1"))
	require.Len(t, rm.folders.deleted, 1)
}

func TestFolderDelete_NotEmpty(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{folders: &fakeFoldersRepo{
		byID:  map[string]*models.Folder{"d1": {ID: "d1", OwnerID: "u1", Name: "docs"}},
		empty: false,
	}}
	s := NewFolderService(db, rm)

	err := s.Delete(context.Background(), "u1", "d1")
	require.ErrorIs(t, err, common.ErrFolderNotEmpty)
	require.Empty(t, rm.folders.deleted)
}

func TestFolderDelete_WrongOwner(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{folders: &fakeFoldersRepo{
		byID:  map[string]*models.Folder{"d1": {ID: "d1", OwnerID: "someone-else", Name: "docs"}},
		empty: true,
	}}
	s := NewFolderService(db, rm)

	err := s.Delete(context.Background(), "u1", "d1")
	require.ErrorIs(t, err, common.ErrNotFound)
}
