// Package middleware adapts token verification to net/http.
//
// [Guard] reads a Bearer token from the Authorization header, verifies it
// through a [Verifier] (normally *goJWT.Engine) and stores the decoded token
// in the request context for [TokenFromContext] and [ClaimsFromContext].
// [RequireClaim] narrows a guarded route to tokens carrying a claim value.
//
// The package never parses tokens itself and never talks to the revocation
// backend; every decision comes from the Verifier.
package middleware
