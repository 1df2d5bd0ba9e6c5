package domain

import "time"

// RefreshSession is the single stored refresh record per user. Only the
// SHA-256 digest of the refresh credential is persisted, never the raw token.
type RefreshSession struct {
	UserID    int64
	TokenHash string
	TokenID   string
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s RefreshSession) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
