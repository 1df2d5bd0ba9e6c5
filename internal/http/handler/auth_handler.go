package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Teamie71/folioo-server/internal/config"
	"github.com/Teamie71/folioo-server/internal/domain/authn"
	"github.com/Teamie71/folioo-server/internal/http/middleware"
	authservice "github.com/Teamie71/folioo-server/internal/service/auth"
)

// AuthHandler exposes the login, refresh, logout, and unlink endpoints.
type AuthHandler struct {
	auth    authservice.Service
	cfg     config.Config
	cookies cookiePolicy
	logger  *zap.Logger
}

// NewAuthHandler wires the handler.
func NewAuthHandler(auth authservice.Service, cfg config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		cfg:     cfg,
		cookies: newCookiePolicy(cfg),
		logger:  logger,
	}
}

// Login starts the OAuth flow: sets the state cookie and redirects to the
// provider authorize page.
func (h *AuthHandler) Login(c *gin.Context) {
	out, err := h.auth.StartLogin(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.cookies.set(c, middleware.StateCookie, out.State, int(h.cfg.OAuthStateTTL.Seconds()), stateCookiePath)
	c.Redirect(http.StatusFound, out.URL)
}

// Callback completes the OAuth flow, sets both credential cookies, and
// redirects to the client application when one is configured.
func (h *AuthHandler) Callback(c *gin.Context) {
	cookieState, _ := c.Cookie(middleware.StateCookie)
	session, err := h.auth.CompleteLogin(c.Request.Context(), authservice.CompleteLoginInput{
		Code:        c.Query("code"),
		State:       c.Query("state"),
		CookieState: cookieState,
	})
	h.cookies.clear(c, middleware.StateCookie, stateCookiePath)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookies(c, session)

	if h.cfg.ClientRedirectURL != "" {
		c.Redirect(http.StatusFound, h.cfg.ClientRedirectURL)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// RefreshToken rotates the credential pair presented via the refresh cookie.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshCookie)
	if token == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			token = strings.TrimSpace(body.RefreshToken)
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Refresh token required."})
		return
	}

	session, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, sessionResponse(session))
}

// Logout revokes the stored refresh session and clears both credential cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Not authenticated."})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), userID); err != nil {
		h.respondError(c, err)
		return
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Unlink severs the provider link, deactivates the account, and clears cookies.
func (h *AuthHandler) Unlink(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Not authenticated."})
		return
	}

	if err := h.auth.Unlink(c.Request.Context(), userID); err != nil {
		h.respondError(c, err)
		return
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "unlinked and deactivated"})
}

// Me returns the authenticated user's identity record.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Not authenticated."})
		return
	}

	user, err := h.auth.UserInfo(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"provider":   user.Provider,
		"email":      user.Email,
		"nickname":   user.Nickname,
		"avatar_url": user.AvatarURL,
		"is_active":  user.IsActive,
	})
}

// Health reports liveness.
func (h *AuthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, session *authservice.Session) {
	h.cookies.set(c, middleware.AccessCookie, session.AccessToken, int(session.AccessExpiresIn), accessCookiePath)
	h.cookies.set(c, middleware.RefreshCookie, session.RefreshToken, int(session.RefreshExpiresIn), refreshCookiePath)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	h.cookies.clear(c, middleware.AccessCookie, accessCookiePath)
	h.cookies.clear(c, middleware.RefreshCookie, refreshCookiePath)
}

func (h *AuthHandler) respondError(c *gin.Context, err error) {
	var providerErr *authn.ProviderError
	switch {
	case errors.As(err, &providerErr):
		h.logger.Error("provider dependency failure", zap.String("op", providerErr.Op), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "error_description": "Identity provider request failed."})
	case errors.Is(err, authn.ErrStateMismatch):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_state", "error_description": "OAuth state mismatch."})
	case errors.Is(err, authn.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Invalid credential."})
	case errors.Is(err, authn.ErrRefreshReused):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Refresh token expired or superseded."})
	case errors.Is(err, authn.ErrUserDeactivated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account_deactivated", "error_description": "Account is deactivated."})
	case errors.Is(err, authn.ErrIdentityNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "Linked social account not found."})
	default:
		h.logger.Error("unhandled auth error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Unexpected error."})
	}
}

func sessionResponse(session *authservice.Session) gin.H {
	return gin.H{
		"user_id":       session.UserID,
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    session.AccessExpiresIn,
	}
}
