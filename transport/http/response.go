package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes surfaced at the API boundary.
// Authentication failures deliberately reuse coarse codes so callers
// cannot distinguish "wrong key" from "malformed key".
const (
	CodeMissingField     = "MISSING_FIELD"
	CodeInvalidPublicKey = "INVALID_PUBLIC_KEY"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeChallengeExpired = "CHALLENGE_EXPIRED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeCSRFFailed       = "CSRF_FAILED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternalError    = "INTERNAL_SERVER_ERROR"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}
