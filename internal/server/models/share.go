package models

import "time"

// ShareLink is a public handle to a StoredFile. A share is never
// hard-deleted on revoke; IsActive=false keeps it for the owner's history.
type ShareLink struct {
	ID        string
	FileID    string
	OwnerID   string
	ShareCode string

	// Password is the plain access password; empty means no password gate.
	// This is an access code for a public link, not a credential store.
	Password string

	IsActive      bool
	ExpireAt      *time.Time
	MaxDownloads  *int64
	DownloadCount int64
	CreatedAt     time.Time
}

// IsExpired reports whether the share is past its expiry time or has
// exhausted its download budget.
func (s *ShareLink) IsExpired(now time.Time) bool {
	if s.ExpireAt != nil && now.After(*s.ExpireAt) {
		return true
	}
	if s.MaxDownloads != nil && s.DownloadCount >= *s.MaxDownloads {
		return true
	}
	return false
}
