package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Teamie71/folioo-server/internal/config"
	"github.com/Teamie71/folioo-server/internal/domain"
	"github.com/Teamie71/folioo-server/internal/domain/authn"
	"github.com/Teamie71/folioo-server/internal/repository"
)

// SocialLogin carries the provider profile attributes applied to the local
// identity at login time.
type SocialLogin struct {
	Provider       domain.Provider
	ProviderUserID string
	Email          string
	Nickname       string
	AvatarURL      string
}

// Resolver maps (provider, providerUserID) pairs to local identities.
// It is the only place where identity-to-user mapping logic lives.
type Resolver struct {
	users      repository.UserRepository
	reactivate bool
	logger     *zap.Logger
}

// NewResolver wires the identity resolver.
func NewResolver(users repository.UserRepository, cfg config.Config, logger *zap.Logger) *Resolver {
	return &Resolver{users: users, reactivate: cfg.ReactivateOnLogin, logger: logger}
}

// FindOrCreate looks up the identity, creating it on first login. Concurrent
// first-time logins for the same identity race on the (provider,
// provider_user_id) uniqueness constraint; the loser retries as a lookup.
// Mutable profile fields are refreshed on every login.
func (r *Resolver) FindOrCreate(ctx context.Context, in SocialLogin) (domain.User, error) {
	existing, err := r.users.GetBySocial(ctx, in.Provider, in.ProviderUserID)
	switch {
	case err == nil:
		return r.refreshProfile(ctx, existing, in)
	case !errors.Is(err, pgx.ErrNoRows):
		return domain.User{}, fmt.Errorf("lookup identity: %w", err)
	}

	created, err := r.users.Create(ctx, domain.User{
		Provider:       in.Provider,
		ProviderUserID: in.ProviderUserID,
		Email:          in.Email,
		Nickname:       in.Nickname,
		AvatarURL:      in.AvatarURL,
		IsActive:       true,
	})
	if err == nil {
		return created, nil
	}
	if !repository.IsUniqueViolation(err) {
		return domain.User{}, fmt.Errorf("create identity: %w", err)
	}

	// Someone else won the insert race; fall back to a plain lookup.
	r.logger.Debug("identity insert lost race, retrying lookup",
		zap.String("provider", string(in.Provider)))
	existing, err = r.users.GetBySocial(ctx, in.Provider, in.ProviderUserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup identity after race: %w", err)
	}
	return r.refreshProfile(ctx, existing, in)
}

// ProviderUserID returns the provider-side id for the user, or "" when the
// identity belongs to a different provider than requested.
func (r *Resolver) ProviderUserID(ctx context.Context, userID int64, provider domain.Provider) (string, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", authn.ErrIdentityNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user.Provider != provider {
		return "", nil
	}
	return user.ProviderUserID, nil
}

// User loads the identity record by local user id.
func (r *Resolver) User(ctx context.Context, userID int64) (domain.User, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, authn.ErrIdentityNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// Deactivate soft-deletes the identity.
func (r *Resolver) Deactivate(ctx context.Context, userID int64) error {
	if err := r.users.Deactivate(ctx, userID); err != nil {
		return fmt.Errorf("deactivate identity: %w", err)
	}
	return nil
}

func (r *Resolver) refreshProfile(ctx context.Context, user domain.User, in SocialLogin) (domain.User, error) {
	// A login that will be rejected as deactivated must not mutate the
	// identity record.
	if !r.reactivate && !user.IsActive {
		return user, nil
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Nickname != "" {
		user.Nickname = in.Nickname
	}
	if in.AvatarURL != "" {
		user.AvatarURL = in.AvatarURL
	}
	if r.reactivate {
		user.IsActive = true
	}
	updated, err := r.users.UpdateProfile(ctx, user)
	if err != nil {
		return domain.User{}, fmt.Errorf("refresh profile: %w", err)
	}
	return updated, nil
}
