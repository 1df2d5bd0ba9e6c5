package repository

import (
	"context"

	"github.com/Teamie71/folioo-server/internal/domain"
)

// UserRepository exposes persistence for social-login identities.
type UserRepository interface {
	GetBySocial(ctx context.Context, provider domain.Provider, providerUserID string) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	UpdateProfile(ctx context.Context, user domain.User) (domain.User, error)
	Deactivate(ctx context.Context, userID int64) error
}

// RefreshSessionRepository persists the single refresh record per user.
// Upsert must atomically replace any existing record for the user.
type RefreshSessionRepository interface {
	Upsert(ctx context.Context, session domain.RefreshSession) error
	// FindByUserID returns nil, nil when no record exists.
	FindByUserID(ctx context.Context, userID int64) (*domain.RefreshSession, error)
	// DeleteByUserID is idempotent.
	DeleteByUserID(ctx context.Context, userID int64) error
}
