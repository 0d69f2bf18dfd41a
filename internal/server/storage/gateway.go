// Package storage implements the byte-storage gateway: a primary
// S3-compatible object store with an optional local-disk fallback. The
// rest of the system never talks to a backend directly; it stores and
// dispatches on the Location recorded at write time.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/metrics"
	"github.com/avolkonsky/cloudvault/internal/server/models"
	"github.com/google/uuid"
)

// RemoteBackend is the wire contract of the primary object store.
type RemoteBackend interface {
	EnsureContainer(ctx context.Context, container string) error
	Put(ctx context.Context, container, key string, data []byte, contentType string) error
	Get(ctx context.Context, container, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, container, key string) error
}

// Gateway routes byte operations between the remote store and the local
// fallback. Put never retries beyond the single remote-then-local attempt;
// retry policy belongs to the caller.
type Gateway struct {
	remote  RemoteBackend
	local   *LocalBackend // nil when the fallback is not configured
	timeout time.Duration
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewGateway builds a gateway. local may be nil; then a remote failure
// fails the whole Put.
func NewGateway(remote RemoteBackend, local *LocalBackend, timeout time.Duration, logger logging.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{remote: remote, local: local, timeout: timeout, logger: logger, metrics: m}
}

// ContainerName returns the per-principal container in the object store.
func ContainerName(ownerID string) string {
	return fmt.Sprintf("user_%s_files", ownerID)
}

func objectKey(ownerID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", ownerID, uuid.New(), filename)
}

func (g *Gateway) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// Put writes the bytes to the primary store and, if that fails and a
// fallback is configured, to the local disk. The returned Location is the
// only record of where the bytes ended up. When both attempts fail the
// caller must not create any metadata: no row without bytes.
func (g *Gateway) Put(ctx context.Context, ownerID, filename string, data []byte, contentType string) (models.Location, error) {
	container := ContainerName(ownerID)
	key := objectKey(ownerID, filename)

	opCtx, cancel := g.opCtx(ctx)
	remoteErr := g.remote.Put(opCtx, container, key, data, contentType)
	cancel()
	g.metrics.ObserveStorageOp("put", "remote", remoteErr)
	if remoteErr == nil {
		return models.Location{Backend: models.BackendRemote, Container: container, Key: key}, nil
	}

	if g.local == nil {
		return models.Location{}, fmt.Errorf("%w: remote put: %v", common.ErrStorageUnavailable, remoteErr)
	}

	g.logger.Warn(ctx, "remote put failed, falling back to local disk", "owner", ownerID, "error", remoteErr)

	path, localErr := g.local.Put(ownerID, filename, data)
	g.metrics.ObserveStorageOp("put", "local", localErr)
	if localErr != nil {
		return models.Location{}, fmt.Errorf("%w: remote put: %v; local put: %v",
			common.ErrStorageUnavailable, remoteErr, localErr)
	}
	return models.Location{Backend: models.BackendLocal, Path: path}, nil
}

// Get opens the bytes at loc, dispatching purely on the recorded variant.
// The remote read runs under the caller's context, not the op timeout:
// streaming a large body may legitimately outlive it, and killing the read
// mid-stream would truncate a response already underway.
func (g *Gateway) Get(ctx context.Context, loc models.Location) (io.ReadCloser, error) {
	switch loc.Backend {
	case models.BackendRemote:
		rc, err := g.remote.Get(ctx, loc.Container, loc.Key)
		g.metrics.ObserveStorageOp("get", "remote", err)
		if err != nil {
			if errors.Is(err, common.ErrObjectNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: remote get: %v", common.ErrStorageUnavailable, err)
		}
		return rc, nil
	case models.BackendLocal:
		if g.local == nil {
			return nil, fmt.Errorf("%w: local backend not configured", common.ErrStorageUnavailable)
		}
		rc, err := g.local.Get(loc.Path)
		g.metrics.ObserveStorageOp("get", "local", err)
		return rc, err
	default:
		return nil, fmt.Errorf("unknown storage backend %q", loc.Backend)
	}
}

// Delete removes the bytes at loc. Callers treat failure as non-fatal:
// metadata removal must not be blocked by backend unavailability.
func (g *Gateway) Delete(ctx context.Context, loc models.Location) error {
	switch loc.Backend {
	case models.BackendRemote:
		opCtx, cancel := g.opCtx(ctx)
		defer cancel()
		err := g.remote.Delete(opCtx, loc.Container, loc.Key)
		g.metrics.ObserveStorageOp("delete", "remote", err)
		return err
	case models.BackendLocal:
		if g.local == nil {
			return fmt.Errorf("%w: local backend not configured", common.ErrStorageUnavailable)
		}
		err := g.local.Delete(loc.Path)
		g.metrics.ObserveStorageOp("delete", "local", err)
		return err
	default:
		return fmt.Errorf("unknown storage backend %q", loc.Backend)
	}
}
