package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Teamie71/folioo-server/internal/jwt"
)

const userIDKey = "authUserID"

// Cookie names shared with the handlers.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	StateCookie   = "oauth_state"
)

// Auth validates the inbound access credential and attaches the resolved
// user id. The access cookie takes precedence over the bearer header.
type Auth struct {
	Issuer *jwt.Issuer
}

// RequireAccess aborts unauthenticated requests before the handler runs.
// Verification is stateless; nothing is cached across requests.
func (m *Auth) RequireAccess(c *gin.Context) {
	token := extractAccessToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Access token required."})
		return
	}

	userID, err := m.Issuer.VerifyAccess(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Invalid access token."})
		return
	}

	c.Set(userIDKey, userID)
	c.Next()
}

// GetUserID exposes the authenticated user id to handlers.
func GetUserID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok
}

func extractAccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
