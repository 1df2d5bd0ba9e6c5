package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Teamie71/folioo-server/internal/config"
)

// Cookie paths. The refresh cookie is scoped to the refresh endpoint and the
// state cookie to the callback endpoint so neither travels on other requests.
const (
	accessCookiePath  = "/"
	refreshCookiePath = "/auth/refresh"
	stateCookiePath   = "/auth/callback"
)

// cookiePolicy centralizes credential cookie attributes. Tokens themselves
// stay plain strings inside the service; transport is a boundary concern.
type cookiePolicy struct {
	domain   string
	sameSite http.SameSite
	secure   bool
}

func newCookiePolicy(cfg config.Config) cookiePolicy {
	sameSite := http.SameSiteLaxMode
	switch cfg.CookieSameSite {
	case "none":
		sameSite = http.SameSiteNoneMode
	case "strict":
		sameSite = http.SameSiteStrictMode
	}
	return cookiePolicy{
		domain:   cfg.CookieDomain,
		sameSite: sameSite,
		secure:   cfg.SecureCookies(),
	}
}

func (p cookiePolicy) set(c *gin.Context, name, value string, maxAge int, path string) {
	c.SetSameSite(p.sameSite)
	c.SetCookie(name, value, maxAge, path, p.domain, p.secure, true)
}

func (p cookiePolicy) clear(c *gin.Context, name, path string) {
	c.SetSameSite(p.sameSite)
	c.SetCookie(name, "", -1, path, p.domain, p.secure, true)
}
