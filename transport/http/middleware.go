package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stayflow/gatekeeper/security/csrf"
	"github.com/stayflow/gatekeeper/security/ratelimit"
	"github.com/stayflow/gatekeeper/service"
)

const (
	// AuthCookie holds the session credential, HTTP-only.
	AuthCookie = "auth-token"

	// SessionCookie identifies the browser session for CSRF purposes.
	// It exists before authentication does, so the login-challenge
	// endpoint can be protected by rate limiting but stays reachable.
	SessionCookie = "__session"

	// CSRFCookie mirrors the token for double-submit clients.
	CSRFCookie = "__csrf_token"

	// CSRFHeader is how clients echo the token on unsafe requests.
	CSRFHeader = "X-CSRF-Token"

	ctxPublicKey = "publicKey"
)

// safeMethod reports whether a method never changes state and is
// therefore exempt from CSRF validation.
func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// RateLimit gates request volume per category. Both dimensions are
// checked: by client IP always, and by authenticated wallet when the
// request carries a valid session. X-RateLimit-* headers are attached to
// every response; limited requests get 429 with Retry-After.
func RateLimit(limiter *ratelimit.Limiter, authService *service.AuthService, category ratelimit.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		// Identity is optional here: an invalid cookie just means the
		// user dimension is skipped. The session middleware decides
		// whether the request is actually authenticated.
		var publicKey string
		if token, err := c.Cookie(AuthCookie); err == nil && token != "" {
			if session, err := authService.ValidateSession(c.Request.Context(), token); err == nil {
				publicKey = session.PublicKey
			}
		}

		result := limiter.CheckRequest(c.Request.Context(), category, ip, publicKey)

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if result.Limited {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			abortError(c, http.StatusTooManyRequests, CodeRateLimited, "Too many requests")
			return
		}

		c.Next()
	}
}

// CSRFConfig configures the CSRF middleware.
type CSRFConfig struct {
	Manager        *csrf.Manager
	AllowedOrigins []string
	// ExemptPaths skip validation entirely, e.g. the login-challenge
	// endpoint which must be reachable before any token exists.
	ExemptPaths []string
	// Secure marks rotated cookies Secure (production).
	Secure bool
}

func (cfg CSRFConfig) exempt(path string) bool {
	for _, p := range cfg.ExemptPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// CSRFProtection validates origin and the double-submit token for every
// unsafe-method request on non-exempt paths, then rotates the token so
// the next round-trip carries a fresh one.
func CSRFProtection(cfg CSRFConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if safeMethod(c.Request.Method) || cfg.exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		if err := validateOrigin(c.Request, cfg.AllowedOrigins); err != nil {
			abortError(c, http.StatusForbidden, CodeCSRFFailed, "Origin validation failed")
			return
		}

		sessionID, err := c.Cookie(SessionCookie)
		if err != nil || sessionID == "" {
			abortError(c, http.StatusForbidden, CodeCSRFFailed, "CSRF validation failed")
			return
		}

		token := c.GetHeader(CSRFHeader)
		if !cfg.Manager.ValidateToken(c.Request.Context(), sessionID, token) {
			abortError(c, http.StatusForbidden, CodeCSRFFailed, "CSRF validation failed")
			return
		}

		// Rotation per request: issue the replacement before forwarding
		// so the headers land ahead of the handler writing the body.
		if rotated, err := cfg.Manager.GenerateToken(c.Request.Context(), sessionID); err == nil {
			c.Header(CSRFHeader, rotated)
			setCSRFCookie(c, rotated, cfg.Secure)
		}

		c.Next()
	}
}

// RequireSession guards protected routes. Browser navigations get a
// redirect to the login entry point; API clients get 401.
func RequireSession(authService *service.AuthService, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(AuthCookie)
		if err != nil || token == "" {
			rejectUnauthenticated(c, loginPath)
			return
		}

		session, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			rejectUnauthenticated(c, loginPath)
			return
		}

		c.Set(ctxPublicKey, session.PublicKey)
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context, loginPath string) {
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Redirect(http.StatusSeeOther, loginPath)
		c.Abort()
		return
	}
	abortError(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
}

// Recovery converts panics into a generic 500 envelope. Stack traces are
// logged by gin's recovery writer, never exposed to the client.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, _ any) {
		abortError(c, http.StatusInternalServerError, CodeInternalError, "Internal server error")
	})
}

func setCSRFCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CSRFCookie, token, int(csrf.DefaultTokenTTL.Seconds()), "/", "", secure, false)
}
