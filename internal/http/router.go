package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Teamie71/folioo-server/internal/config"
	"github.com/Teamie71/folioo-server/internal/http/handler"
	httpmiddleware "github.com/Teamie71/folioo-server/internal/http/middleware"
	"github.com/Teamie71/folioo-server/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", authHandler.Login)
		authGroup.GET("/callback", authHandler.Callback)
		authGroup.POST("/refresh", authHandler.RefreshToken)
		authGroup.POST("/logout", authMiddleware.RequireAccess, authHandler.Logout)
		authGroup.POST("/unlink", authMiddleware.RequireAccess, authHandler.Unlink)
		authGroup.GET("/me", authMiddleware.RequireAccess, authHandler.Me)
	}

	r.GET("/health", authHandler.Health)

	return r
}
