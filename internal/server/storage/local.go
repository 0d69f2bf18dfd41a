package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/google/uuid"
)

// LocalBackend stores bytes on the local filesystem under a per-owner
// directory. It is the fallback when the remote store is unavailable.
type LocalBackend struct {
	root string
}

// NewLocalBackend prepares the storage root.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalBackend{root: root}, nil
}

// Put writes the bytes to a fresh per-owner path and returns it. The random
// prefix keeps concurrent uploads of equally named files from colliding.
func (b *LocalBackend) Put(ownerID, filename string, data []byte) (string, error) {
	dir := filepath.Join(b.root, ownerID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create owner dir: %w", err)
	}

	path := filepath.Join(dir, uuid.New().String()+"_"+filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// Get opens the file at path.
func (b *LocalBackend) Get(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", common.ErrObjectNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes the file at path.
func (b *LocalBackend) Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", common.ErrObjectNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
