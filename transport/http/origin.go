package http

import (
	"errors"
	"net/http"
	"strings"
)

var (
	errOriginMissing    = errors.New("missing origin header")
	errOriginNotAllowed = errors.New("origin not allowed")
)

// validateOrigin checks the Origin header of a request, falling back to
// Referer. With no allowlist configured any present origin passes: the
// check then only catches missing-origin attacks and is not a substitute
// for a real allowlist in production. With an allowlist, the origin must
// start with one of the allowed values. A missing origin always fails.
func validateOrigin(r *http.Request, allowedOrigins []string) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	if origin == "" {
		return errOriginMissing
	}

	if len(allowedOrigins) == 0 {
		return nil
	}

	for _, allowed := range allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return nil
		}
	}

	return errOriginNotAllowed
}
