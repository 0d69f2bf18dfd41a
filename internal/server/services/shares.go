package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/avolkonsky/cloudvault/internal/common"
	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/metrics"
	"github.com/avolkonsky/cloudvault/internal/server/models"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/repomanager"
	"github.com/avolkonsky/cloudvault/internal/server/storage"
	"github.com/avolkonsky/cloudvault/internal/server/throttle"
)

const shareCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const shareCodeLength = 16

// AccessStatus is the outcome of a public share verification.
type AccessStatus string

const (
	AccessGranted       AccessStatus = "granted"
	AccessNeedsPassword AccessStatus = "needs_password"
	AccessWrongPassword AccessStatus = "wrong_password"
	AccessLocked        AccessStatus = "locked"
	AccessExpired       AccessStatus = "expired"
	AccessNotFound      AccessStatus = "not_found"
)

// Access describes a verification outcome. Share and File are populated
// only on AccessGranted; AttemptsLeft and RetryAfter qualify the denial
// statuses that carry them.
type Access struct {
	Status       AccessStatus
	Share        *models.ShareLink
	File         *models.StoredFile
	AttemptsLeft int64
	RetryAfter   time.Duration
}

// ShareService manages share links and gates public access to them.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gateway     *storage.Gateway
	throttle    throttle.Throttle
	logger      logging.Logger
	metrics     *metrics.Metrics

	maxAttempts   int64
	lockoutWindow time.Duration

	now func() time.Time
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, gw *storage.Gateway, thr throttle.Throttle,
	maxAttempts int64, lockoutWindow time.Duration, logger logging.Logger, mt *metrics.Metrics) *ShareService {
	return &ShareService{
		db:            db,
		repomanager:   m,
		gateway:       gw,
		throttle:      thr,
		logger:        logger,
		metrics:       mt,
		maxAttempts:   maxAttempts,
		lockoutWindow: lockoutWindow,
		now:           time.Now,
	}
}

// Create publishes a share link for one of the principal's active files.
// Only one live (active and unexpired) share may exist per file at a time.
func (s *ShareService) Create(ctx context.Context, ownerID, fileID, password string, expireAt *time.Time, maxDownloads *int64) (*models.ShareLink, error) {
	filesRepo := s.repomanager.Files(s.db)
	sharesRepo := s.repomanager.Shares(s.db)

	f, err := filesRepo.Get(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}
	if f.IsDeleted {
		return nil, common.ErrNotFound
	}

	live, err := sharesRepo.FindLiveByFile(ctx, fileID, ownerID)
	if err != nil && !errors.Is(err, common.ErrShareNotFound) {
		return nil, fmt.Errorf("checking existing shares: %w", err)
	}
	if live != nil && !live.IsExpired(s.now()) {
		return nil, common.ErrShareAlreadyExists
	}

	if maxDownloads != nil && *maxDownloads <= 0 {
		return nil, fmt.Errorf("max downloads must be positive")
	}

	code, err := generateShareCode()
	if err != nil {
		return nil, fmt.Errorf("generating share code: %w", err)
	}

	share := &models.ShareLink{
		ID:           uuid.NewString(),
		FileID:       fileID,
		OwnerID:      ownerID,
		ShareCode:    code,
		Password:     password,
		IsActive:     true,
		ExpireAt:     expireAt,
		MaxDownloads: maxDownloads,
	}
	if err := sharesRepo.Insert(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// Verify gates public access to a share. clientID identifies the caller
// for attempt throttling and must be stable per client (an IP address).
//
// The returned error is one of the share sentinels on denial; the Access
// value always carries the status and, where relevant, the remaining
// attempts or lockout countdown.
func (s *ShareService) Verify(ctx context.Context, code, password, clientID string) (*Access, error) {
	share, err := s.repomanager.Shares(s.db).GetActiveByCode(ctx, code)
	if errors.Is(err, common.ErrShareNotFound) {
		s.metrics.ObserveShareDecision(string(AccessNotFound))
		return &Access{Status: AccessNotFound}, common.ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up share: %w", err)
	}

	if share.IsExpired(s.now()) {
		s.metrics.ObserveShareDecision(string(AccessExpired))
		return &Access{Status: AccessExpired}, common.ErrShareExpired
	}

	key := throttle.Key(code, clientID)

	attempts, err := s.throttle.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading attempt counter: %w", err)
	}
	if attempts >= s.maxAttempts {
		return s.locked(ctx, key)
	}

	if share.Password == "" {
		return s.grant(ctx, share)
	}

	if password == "" {
		// Asking for the password is not an attempt.
		s.metrics.ObserveShareDecision(string(AccessNeedsPassword))
		return &Access{Status: AccessNeedsPassword}, common.ErrPasswordRequired
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(share.Password)) == 1 {
		if err := s.throttle.Reset(ctx, key); err != nil {
			s.logger.Warn(ctx, "resetting attempt counter", "error", err)
		}
		return s.grant(ctx, share)
	}

	n, err := s.throttle.IncrementAndGet(ctx, key, s.lockoutWindow)
	if err != nil {
		return nil, fmt.Errorf("counting attempt: %w", err)
	}
	if n >= s.maxAttempts {
		return s.locked(ctx, key)
	}

	s.metrics.ObserveShareDecision(string(AccessWrongPassword))
	return &Access{Status: AccessWrongPassword, AttemptsLeft: s.maxAttempts - n}, common.ErrPasswordMismatch
}

func (s *ShareService) grant(ctx context.Context, share *models.ShareLink) (*Access, error) {
	f, err := s.repomanager.Files(s.db).GetByID(ctx, share.FileID)
	if err != nil {
		return nil, fmt.Errorf("loading shared file: %w", err)
	}
	if f.IsDeleted {
		// The owner trashed the file after sharing it.
		s.metrics.ObserveShareDecision(string(AccessNotFound))
		return &Access{Status: AccessNotFound}, common.ErrShareNotFound
	}
	s.metrics.ObserveShareDecision(string(AccessGranted))
	return &Access{Status: AccessGranted, Share: share, File: f}, nil
}

func (s *ShareService) locked(ctx context.Context, key string) (*Access, error) {
	retryAfter, err := s.throttle.RetryAfter(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "reading lockout ttl", "error", err)
	}
	s.metrics.ObserveShareDecision(string(AccessLocked))
	return &Access{Status: AccessLocked, RetryAfter: retryAfter}, common.ErrShareLocked
}

// Download verifies access and streams the shared bytes. The download
// budget is claimed with a guarded update after the bytes are opened, so
// a storage failure never consumes a slot, and two concurrent callers can
// never both take the last one. On denial the returned Access carries the
// outcome, including the lockout countdown, for the caller to render.
func (s *ShareService) Download(ctx context.Context, code, password, clientID string) (io.ReadCloser, *Access, error) {
	access, err := s.Verify(ctx, code, password, clientID)
	if err != nil {
		return nil, access, err
	}

	rc, err := s.gateway.Get(ctx, access.File.Location)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repomanager.Shares(s.db).ClaimDownload(ctx, access.Share.ID); err != nil {
		rc.Close()
		if errors.Is(err, common.ErrDownloadLimitReached) {
			s.metrics.ObserveShareDecision(string(AccessExpired))
			return nil, &Access{Status: AccessExpired}, common.ErrDownloadLimitReached
		}
		return nil, nil, fmt.Errorf("claiming download slot: %w", err)
	}

	if err := s.repomanager.Files(s.db).IncrementDownloadCount(ctx, access.File.ID); err != nil {
		s.logger.Warn(ctx, "incrementing file download count", "file", access.File.ID, "error", err)
	}

	return rc, access, nil
}

// Revoke deactivates a share. The row stays for the owner's history.
func (s *ShareService) Revoke(ctx context.Context, ownerID, shareID string) error {
	return s.repomanager.Shares(s.db).Revoke(ctx, shareID, ownerID)
}

// List returns the principal's shares, active or revoked.
func (s *ShareService) List(ctx context.Context, ownerID string, active bool) ([]*models.ShareLink, error) {
	return s.repomanager.Shares(s.db).ListByOwner(ctx, ownerID, active)
}

func generateShareCode() (string, error) {
	max := big.NewInt(int64(len(shareCodeAlphabet)))
	b := make([]byte, shareCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = shareCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
