package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Teamie71/folioo-server/internal/config"
	"github.com/Teamie71/folioo-server/internal/domain"
	"github.com/Teamie71/folioo-server/internal/domain/authn"
	"github.com/Teamie71/folioo-server/internal/http/middleware"
	"github.com/Teamie71/folioo-server/internal/jwt"
	authservice "github.com/Teamie71/folioo-server/internal/service/auth"
)

type fakeService struct {
	startLogin    func(ctx context.Context) (*authservice.StartLoginOutput, error)
	completeLogin func(ctx context.Context, in authservice.CompleteLoginInput) (*authservice.Session, error)
	refresh       func(ctx context.Context, token string) (*authservice.Session, error)
	logout        func(ctx context.Context, userID int64) error
	unlink        func(ctx context.Context, userID int64) error
	userInfo      func(ctx context.Context, userID int64) (domain.User, error)
}

func (f *fakeService) StartLogin(ctx context.Context) (*authservice.StartLoginOutput, error) {
	return f.startLogin(ctx)
}

func (f *fakeService) CompleteLogin(ctx context.Context, in authservice.CompleteLoginInput) (*authservice.Session, error) {
	return f.completeLogin(ctx, in)
}

func (f *fakeService) Refresh(ctx context.Context, token string) (*authservice.Session, error) {
	return f.refresh(ctx, token)
}

func (f *fakeService) Logout(ctx context.Context, userID int64) error { return f.logout(ctx, userID) }

func (f *fakeService) Unlink(ctx context.Context, userID int64) error { return f.unlink(ctx, userID) }

func (f *fakeService) UserInfo(ctx context.Context, userID int64) (domain.User, error) {
	return f.userInfo(ctx, userID)
}

func testSession(userID int64) *authservice.Session {
	return &authservice.Session{
		UserID:           userID,
		AccessToken:      "access-jwt",
		RefreshToken:     "refresh-jwt",
		AccessExpiresIn:  900,
		RefreshExpiresIn: 1209600,
	}
}

func handlerRouter(t *testing.T, svc authservice.Service, mutate func(cfg *config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		OAuthStateTTL:      10 * time.Minute,
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		CookieSameSite:     "lax",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	issuer, err := jwt.NewIssuer(cfg)
	require.NoError(t, err)
	auth := &middleware.Auth{Issuer: issuer}

	h := NewAuthHandler(svc, cfg, zap.NewNop())
	r := gin.New()
	r.GET("/auth/login", h.Login)
	r.GET("/auth/callback", h.Callback)
	r.POST("/auth/refresh", h.RefreshToken)
	r.POST("/auth/logout", auth.RequireAccess, h.Logout)
	r.POST("/auth/unlink", auth.RequireAccess, h.Unlink)
	r.GET("/auth/me", auth.RequireAccess, h.Me)
	return r
}

func responseCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func mintAccessCookie(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	issuer, err := jwt.NewIssuer(config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
	})
	require.NoError(t, err)
	pair, err := issuer.IssuePair(userID)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.AccessCookie, Value: pair.AccessToken}
}

func TestLoginSetsStateCookieAndRedirects(t *testing.T) {
	svc := &fakeService{
		startLogin: func(ctx context.Context) (*authservice.StartLoginOutput, error) {
			return &authservice.StartLoginOutput{
				State: "state-123",
				URL:   "https://idp.test/authorize?state=state-123",
			}, nil
		},
	}
	r := handlerRouter(t, svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://idp.test/authorize?state=state-123", w.Header().Get("Location"))

	state := responseCookie(t, w, middleware.StateCookie)
	require.NotNil(t, state)
	require.Equal(t, "state-123", state.Value)
	require.Equal(t, "/auth/callback", state.Path)
	require.True(t, state.HttpOnly)
	require.Equal(t, 600, state.MaxAge)
}

func TestCallbackSetsScopedSessionCookies(t *testing.T) {
	var got authservice.CompleteLoginInput
	svc := &fakeService{
		completeLogin: func(ctx context.Context, in authservice.CompleteLoginInput) (*authservice.Session, error) {
			got = in
			return testSession(42), nil
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=state-123", nil)
	req.AddCookie(&http.Cookie{Name: middleware.StateCookie, Value: "state-123"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "auth-code", got.Code)
	require.Equal(t, "state-123", got.State)
	require.Equal(t, "state-123", got.CookieState)

	access := responseCookie(t, w, middleware.AccessCookie)
	require.NotNil(t, access)
	require.Equal(t, "/", access.Path)
	require.True(t, access.HttpOnly)

	refresh := responseCookie(t, w, middleware.RefreshCookie)
	require.NotNil(t, refresh)
	require.Equal(t, "/auth/refresh", refresh.Path)
	require.True(t, refresh.HttpOnly)

	// State cookie is single-use and cleared regardless of outcome.
	state := responseCookie(t, w, middleware.StateCookie)
	require.NotNil(t, state)
	require.Empty(t, state.Value)
	require.Less(t, state.MaxAge, 0)
}

func TestCallbackRedirectsToClient(t *testing.T) {
	svc := &fakeService{
		completeLogin: func(ctx context.Context, in authservice.CompleteLoginInput) (*authservice.Session, error) {
			return testSession(42), nil
		},
	}
	r := handlerRouter(t, svc, func(cfg *config.Config) {
		cfg.ClientRedirectURL = "https://app.test/welcome"
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=auth-code&state=s", nil)
	req.AddCookie(&http.Cookie{Name: middleware.StateCookie, Value: "s"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://app.test/welcome", w.Header().Get("Location"))
}

func TestCallbackErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"state mismatch", authn.ErrStateMismatch, http.StatusUnauthorized},
		{"provider failure", &authn.ProviderError{Op: "exchange", Status: 502}, http.StatusBadGateway},
		{"deactivated", authn.ErrUserDeactivated, http.StatusUnauthorized},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{
				completeLogin: func(ctx context.Context, in authservice.CompleteLoginInput) (*authservice.Session, error) {
					return nil, tc.err
				},
			}
			r := handlerRouter(t, svc, nil)

			req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=s", nil)
			req.AddCookie(&http.Cookie{Name: middleware.StateCookie, Value: "s"})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			// No credential cookies on failure.
			require.Nil(t, responseCookie(t, w, middleware.AccessCookie))
			require.Nil(t, responseCookie(t, w, middleware.RefreshCookie))
		})
	}
}

func TestRefreshFromCookie(t *testing.T) {
	var gotToken string
	svc := &fakeService{
		refresh: func(ctx context.Context, token string) (*authservice.Session, error) {
			gotToken = token
			return testSession(42), nil
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookie, Value: "cookie-refresh"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "cookie-refresh", gotToken)
	require.NotNil(t, responseCookie(t, w, middleware.AccessCookie))
	require.NotNil(t, responseCookie(t, w, middleware.RefreshCookie))
}

func TestRefreshFromBody(t *testing.T) {
	var gotToken string
	svc := &fakeService{
		refresh: func(ctx context.Context, token string) (*authservice.Session, error) {
			gotToken = token
			return testSession(42), nil
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"body-refresh"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "body-refresh", gotToken)
}

func TestRefreshMissingToken(t *testing.T) {
	r := handlerRouter(t, &fakeService{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshSuperseded(t *testing.T) {
	svc := &fakeService{
		refresh: func(ctx context.Context, token string) (*authservice.Session, error) {
			return nil, authn.ErrRefreshReused
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshCookie, Value: "stale"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid_token")
}

func TestLogoutClearsCookies(t *testing.T) {
	var gotUserID int64
	svc := &fakeService{
		logout: func(ctx context.Context, userID int64) error {
			gotUserID = userID
			return nil
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(mintAccessCookie(t, 42))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(42), gotUserID)

	access := responseCookie(t, w, middleware.AccessCookie)
	require.NotNil(t, access)
	require.Empty(t, access.Value)
	require.Less(t, access.MaxAge, 0)

	refresh := responseCookie(t, w, middleware.RefreshCookie)
	require.NotNil(t, refresh)
	require.Less(t, refresh.MaxAge, 0)
}

func TestUnlinkNotLinked(t *testing.T) {
	svc := &fakeService{
		unlink: func(ctx context.Context, userID int64) error {
			return authn.ErrIdentityNotFound
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/unlink", nil)
	req.AddCookie(mintAccessCookie(t, 42))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMe(t *testing.T) {
	svc := &fakeService{
		userInfo: func(ctx context.Context, userID int64) (domain.User, error) {
			return domain.User{
				ID:       userID,
				Provider: domain.ProviderKakao,
				Email:    "user@example.com",
				Nickname: "user",
				IsActive: true,
			}, nil
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(mintAccessCookie(t, 42))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "user@example.com")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeDeletedUser(t *testing.T) {
	// A well-formed access token for a user whose row is gone is stale state,
	// not a server fault.
	svc := &fakeService{
		userInfo: func(ctx context.Context, userID int64) (domain.User, error) {
			return domain.User{}, authn.ErrIdentityNotFound
		},
	}
	r := handlerRouter(t, svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(mintAccessCookie(t, 42))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "not_found")
}
