package middleware

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goJWT"
)

// statusFor maps a Verify error to an HTTP status. Backend and shutdown
// failures are 503 so clients retry instead of discarding the token.
func statusFor(err error) int {
	switch {
	case errors.Is(err, goJWT.ErrRevocationUnavailable), errors.Is(err, goJWT.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

// errorDescription is the RFC 6750 error attribute for err.
func errorDescription(err error) string {
	switch {
	case errors.Is(err, goJWT.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, goJWT.ErrTokenRevoked):
		return "token revoked"
	case errors.Is(err, goJWT.ErrTokenNotActive):
		return "token not yet valid"
	default:
		return "invalid token"
	}
}

func reject(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+errorDescription(err)+`"`)
		http.Error(w, "unauthorized", status)
		return
	}
	http.Error(w, http.StatusText(status), status)
}
