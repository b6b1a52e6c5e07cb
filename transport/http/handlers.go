package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stayflow/gatekeeper/core"
	"github.com/stayflow/gatekeeper/security/csrf"
	"github.com/stayflow/gatekeeper/service"
)

// AuthHandlers contains the HTTP handlers for the authentication core.
type AuthHandlers struct {
	authService *service.AuthService
	csrfManager *csrf.Manager
	secure      bool // mark cookies Secure (production)
	log         *slog.Logger
}

// NewAuthHandlers creates the handler set.
func NewAuthHandlers(authService *service.AuthService, csrfManager *csrf.Manager, secure bool, log *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		csrfManager: csrfManager,
		secure:      secure,
		log:         log,
	}
}

// Login issues a challenge for the wallet to sign.
func (h *AuthHandlers) Login(c *gin.Context) {
	// publicKey is decoded loosely so a present-but-non-string value is
	// reported as a missing field rather than a decode failure.
	var req struct {
		PublicKey any `json:"publicKey"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusInternalServerError, CodeInternalError, "Internal server error")
		return
	}

	publicKey, ok := req.PublicKey.(string)
	if !ok || publicKey == "" {
		respondError(c, http.StatusBadRequest, CodeMissingField, "publicKey is required")
		return
	}

	challenge, err := h.authService.CreateChallenge(publicKey)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingField):
			respondError(c, http.StatusBadRequest, CodeMissingField, "publicKey is required")
		case errors.Is(err, core.ErrInvalidPublicKey):
			respondError(c, http.StatusBadRequest, CodeInvalidPublicKey, "Invalid public key")
		default:
			h.log.ErrorContext(c.Request.Context(), "failed to create challenge", slog.Any("error", err))
			respondError(c, http.StatusInternalServerError, CodeInternalError, "Internal server error")
		}
		return
	}

	respondOK(c, gin.H{
		"nonce":     challenge.Nonce,
		"timestamp": challenge.Timestamp,
		"message":   challenge.Message,
	})
}

// Verify checks the signed challenge and establishes a session.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		PublicKey string `json:"publicKey" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Nonce     string `json:"nonce" binding:"required"`
		Timestamp int64  `json:"timestamp" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeMissingField, "publicKey, signature, nonce and timestamp are required")
		return
	}

	session, token, err := h.authService.VerifyLogin(c.Request.Context(), req.PublicKey, req.Signature, req.Nonce, req.Timestamp)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingField):
			respondError(c, http.StatusBadRequest, CodeMissingField, "publicKey, signature, nonce and timestamp are required")
		case errors.Is(err, core.ErrChallengeExpired):
			respondError(c, http.StatusUnauthorized, CodeChallengeExpired, "Challenge expired")
		case errors.Is(err, core.ErrInvalidSignature):
			respondError(c, http.StatusUnauthorized, CodeInvalidSignature, "Invalid signature")
		default:
			h.log.ErrorContext(c.Request.Context(), "login verification failed", slog.Any("error", err))
			respondError(c, http.StatusInternalServerError, CodeInternalError, "Internal server error")
		}
		return
	}

	h.setAuthCookie(c, token, int(core.SessionTTL.Seconds()))

	h.log.InfoContext(c.Request.Context(), "wallet authenticated", slog.String("public_key", session.PublicKey))

	respondOK(c, gin.H{"publicKey": session.PublicKey})
}

// Logout clears the session cookie. It always succeeds; the event is
// only recorded when a valid prior session existed.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if token, err := c.Cookie(AuthCookie); err == nil && token != "" {
		h.authService.Logout(c.Request.Context(), token)
	}

	h.setAuthCookie(c, "", -1)

	respondOK(c, gin.H{"message": "Logged out"})
}

// CSRFToken issues a token bound to the browser session, returned in
// the __csrf_token cookie, the X-CSRF-Token header and the body.
func (h *AuthHandlers) CSRFToken(c *gin.Context) {
	sessionID, err := c.Cookie(SessionCookie)
	if err != nil || sessionID == "" {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(SessionCookie, sessionID, int(core.SessionTTL.Seconds()), "/", "", h.secure, true)
	}

	token, err := h.csrfManager.GenerateToken(c.Request.Context(), sessionID)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "failed to generate csrf token", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, CodeInternalError, "Internal server error")
		return
	}

	setCSRFCookie(c, token, h.secure)
	c.Header(CSRFHeader, token)

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns the authenticated wallet. The session middleware has
// already validated the credential.
func (h *AuthHandlers) Me(c *gin.Context) {
	publicKey, exists := c.Get(ctxPublicKey)
	if !exists {
		respondError(c, http.StatusInternalServerError, CodeInternalError, "Internal server error")
		return
	}

	respondOK(c, gin.H{"publicKey": publicKey})
}

func (h *AuthHandlers) setAuthCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(AuthCookie, token, maxAge, "/", "", h.secure, true)
}
