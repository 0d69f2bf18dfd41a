package storage

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_PutGetDelete(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	path, err := b.Put("u1", "report.pdf", []byte("content"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_report.pdf"))
	require.Equal(t, "u1", filepath.Base(filepath.Dir(path)))

	rc, err := b.Get(path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, []byte("content"), data)

	require.NoError(t, b.Delete(path))
	_, err = b.Get(path)
	require.ErrorIs(t, err, common.ErrObjectNotFound)
	require.ErrorIs(t, b.Delete(path), common.ErrObjectNotFound)
}

func TestLocalBackend_UniquePathsForSameName(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	p1, err := b.Put("u1", "a.txt", []byte("one"))
	require.NoError(t, err)
	p2, err := b.Put("u1", "a.txt", []byte("two"))
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)
}

func TestLocalBackend_StripsDirectoryFromName(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	path, err := b.Put("u1", "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "u1", filepath.Base(filepath.Dir(path)))
	require.True(t, strings.HasSuffix(path, "_passwd"))
}
