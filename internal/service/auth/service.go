package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Teamie71/folioo-server/internal/adapter/provider"
	"github.com/Teamie71/folioo-server/internal/config"
	"github.com/Teamie71/folioo-server/internal/domain"
	"github.com/Teamie71/folioo-server/internal/domain/authn"
	"github.com/Teamie71/folioo-server/internal/identity"
	"github.com/Teamie71/folioo-server/internal/jwt"
	"github.com/Teamie71/folioo-server/internal/repository"
)

// Service defines the login, refresh, logout, and unlink orchestrations.
type Service interface {
	StartLogin(ctx context.Context) (*StartLoginOutput, error)
	CompleteLogin(ctx context.Context, in CompleteLoginInput) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, userID int64) error
	Unlink(ctx context.Context, userID int64) error
	UserInfo(ctx context.Context, userID int64) (domain.User, error)
}

// StartLoginOutput carries the generated state and the provider authorize URL.
// The boundary persists the state in a short-lived client-bound cookie.
type StartLoginOutput struct {
	State string
	URL   string
}

// CompleteLoginInput captures the callback query parameters plus the state
// cookie presented by the client.
type CompleteLoginInput struct {
	Code        string
	State       string
	CookieState string
}

// Session is a freshly issued credential pair for one user.
type Session struct {
	UserID           int64
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  int64
	RefreshExpiresIn int64
}

type service struct {
	provider provider.Client
	identity *identity.Resolver
	sessions repository.RefreshSessionRepository
	issuer   *jwt.Issuer
	cfg      config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	// Serializes rotation upserts per user so concurrent refreshes have a
	// deterministic winner instead of racing on the stored record. Entries
	// are refcounted and evicted once uncontended.
	mu        sync.Mutex
	userLocks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewService wires the auth orchestration service.
func NewService(
	providerClient provider.Client,
	resolver *identity.Resolver,
	sessions repository.RefreshSessionRepository,
	issuer *jwt.Issuer,
	cfg config.Config,
	logger *zap.Logger,
) Service {
	return &service{
		provider:  providerClient,
		identity:  resolver,
		sessions:  sessions,
		issuer:    issuer,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/Teamie71/folioo-server/internal/service/auth"),
		now:       time.Now,
		userLocks: make(map[int64]*userLock),
	}
}

// StartLogin generates a fresh anti-CSRF state and the authorize redirect URL.
func (s *service) StartLogin(ctx context.Context) (*StartLoginOutput, error) {
	_, span := s.tracer.Start(ctx, "auth.StartLogin")
	defer span.End()

	state, err := secureRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	return &StartLoginOutput{
		State: state,
		URL:   s.provider.BuildAuthorizeURL(state, s.cfg.ProviderRedirectURI),
	}, nil
}

// CompleteLogin finalizes the provider callback. The state comparison runs
// before any provider call so a forged callback costs no outbound request.
func (s *service) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth.CompleteLogin")
	defer span.End()

	if in.CookieState == "" || in.CookieState != in.State {
		return nil, authn.ErrStateMismatch
	}

	providerToken, err := s.provider.ExchangeCode(ctx, in.Code, s.cfg.ProviderRedirectURI)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	profile, err := s.provider.FetchProfile(ctx, providerToken)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	user, err := s.identity.FindOrCreate(ctx, identity.SocialLogin{
		Provider:       domain.ProviderKakao,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Nickname:       profile.Nickname,
		AvatarURL:      profile.AvatarURL,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !user.IsActive {
		return nil, authn.ErrUserDeactivated
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("social login completed", zap.Int64("user_id", user.ID))
	return session, nil
}

// Refresh rotates the credential pair. Presenting a rotated-out refresh
// credential fails even before its TTL expires because its digest no longer
// matches the stored record.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Refresh")
	defer span.End()

	userID, _, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	stored, err := s.sessions.FindByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if stored == nil || stored.Expired(s.now()) {
		return nil, authn.ErrRefreshReused
	}
	if !jwt.HashEquals(stored.TokenHash, jwt.HashRefreshToken(refreshToken)) {
		s.logger.Warn("refresh token digest mismatch", zap.Int64("user_id", userID))
		return nil, authn.ErrRefreshReused
	}

	session, err := s.issueSession(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return session, nil
}

// Logout deletes the stored refresh record. The boundary clears both
// credential cookies.
func (s *service) Logout(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "auth.Logout")
	defer span.End()

	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("logged out", zap.Int64("user_id", userID))
	return nil
}

// Unlink severs the provider link, then revokes the session, then
// deactivates the identity. The provider unlink must succeed first so a
// locally-deactivated account is never left linked upstream; any failing
// step aborts the remainder.
func (s *service) Unlink(ctx context.Context, userID int64) error {
	ctx, span := s.tracer.Start(ctx, "auth.Unlink")
	defer span.End()

	providerUserID, err := s.identity.ProviderUserID(ctx, userID, domain.ProviderKakao)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if providerUserID == "" {
		return authn.ErrIdentityNotFound
	}

	if err := s.provider.Unlink(ctx, providerUserID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.identity.Deactivate(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("unlinked and deactivated", zap.Int64("user_id", userID))
	return nil
}

// UserInfo returns the identity record for an authenticated user.
func (s *service) UserInfo(ctx context.Context, userID int64) (domain.User, error) {
	return s.identity.User(ctx, userID)
}

func (s *service) issueSession(ctx context.Context, userID int64) (*Session, error) {
	pair, err := s.issuer.IssuePair(userID)
	if err != nil {
		return nil, fmt.Errorf("issue token pair: %w", err)
	}

	if err := s.sessions.Upsert(ctx, domain.RefreshSession{
		UserID:    userID,
		TokenHash: jwt.HashRefreshToken(pair.RefreshToken),
		TokenID:   pair.RefreshID,
		ExpiresAt: s.now().Add(pair.RefreshTTL),
	}); err != nil {
		return nil, fmt.Errorf("persist refresh session: %w", err)
	}

	return &Session{
		UserID:           userID,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresIn:  int64(pair.AccessTTL.Seconds()),
		RefreshExpiresIn: int64(pair.RefreshTTL.Seconds()),
	}, nil
}

func (s *service) lockUser(userID int64) func() {
	s.mu.Lock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &userLock{}
		s.userLocks[userID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.userLocks, userID)
		}
		s.mu.Unlock()
	}
}

func secureRandomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
