package domain

import "time"

// Provider identifies the external identity provider an account came from.
type Provider string

const (
	ProviderKakao Provider = "KAKAO"
)

// User represents a local identity established through a social login.
// The (Provider, ProviderUserID) pair is unique.
type User struct {
	ID             int64
	Provider       Provider
	ProviderUserID string
	Email          string
	Nickname       string
	AvatarURL      string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
