package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/goJWT"
)

// Verifier is the subset of *goJWT.Engine used by Guard.
type Verifier interface {
	Verify(ctx context.Context, token string) (*goJWT.DecodedToken, error)
}

type tokenContextKey struct{}

// TokenFromContext returns the token stored by Guard.
func TokenFromContext(ctx context.Context) (*goJWT.DecodedToken, bool) {
	t, ok := ctx.Value(tokenContextKey{}).(*goJWT.DecodedToken)
	return t, ok
}

// ClaimsFromContext returns the verified claims stored by Guard. ok is false
// for opaque payloads.
func ClaimsFromContext(ctx context.Context) (*goJWT.Claims, bool) {
	t, ok := TokenFromContext(ctx)
	if !ok {
		return nil, false
	}
	return t.Claims()
}

// Guard rejects requests without a valid Bearer token.
func Guard(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				reject(w, errors.New("no verifier"))
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			t, err := v.Verify(r.Context(), token)
			if err != nil {
				reject(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey{}, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireClaim wraps Guard and additionally requires the string claim name to
// equal value. Failing tokens get 403.
func RequireClaim(v Verifier, name, value string) func(http.Handler) http.Handler {
	guard := Guard(v)
	return func(next http.Handler) http.Handler {
		check := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			got, ok := claims.Get(name)
			if s, isString := got.(string); !ok || !isString || s != value {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
		return guard(check)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
