package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/stayflow/gatekeeper/security/csrf"
	"github.com/stayflow/gatekeeper/security/ratelimit"
	"github.com/stayflow/gatekeeper/service"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	AuthService     *service.AuthService
	CSRFManager     *csrf.Manager
	Limiter         *ratelimit.Limiter
	AllowedOrigins  []string
	CSRFExemptPaths []string
	LoginPath       string
	Secure          bool
	Logger          *slog.Logger
}

// NewRouter builds the gin engine with the middleware chain in order:
// CSRF + origin validation, then per-group rate limiting, then session
// checks, then handlers.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), Recovery())

	handlers := NewAuthHandlers(cfg.AuthService, cfg.CSRFManager, cfg.Secure, cfg.Logger)

	exempt := cfg.CSRFExemptPaths
	if len(exempt) == 0 {
		// The challenge and verify endpoints must be reachable before
		// any session or CSRF token exists.
		exempt = []string{"/api/auth/login", "/api/auth/verify"}
	}

	router.Use(CSRFProtection(CSRFConfig{
		Manager:        cfg.CSRFManager,
		AllowedOrigins: cfg.AllowedOrigins,
		ExemptPaths:    exempt,
		Secure:         cfg.Secure,
	}))

	auth := router.Group("/api/auth")
	auth.Use(RateLimit(cfg.Limiter, cfg.AuthService, ratelimit.CategoryAuth))
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/logout", handlers.Logout)
	}

	api := router.Group("/api")
	api.Use(RateLimit(cfg.Limiter, cfg.AuthService, ratelimit.CategoryAPI))
	{
		api.GET("/csrf-token", handlers.CSRFToken)

		protected := api.Group("")
		protected.Use(RequireSession(cfg.AuthService, cfg.LoginPath))
		{
			protected.GET("/me", handlers.Me)
		}
	}

	return router
}
