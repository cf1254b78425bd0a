// Package revocation provides the Redis-backed jti deny-list used by
// goJWT.Engine.
//
// # Key layout
//
// One key per revoked token: <prefix><jti>, default prefix "gojwt:rv:". The
// key expires when the token itself would have expired, so the list never
// outgrows the set of live tokens.
//
// # Failure semantics
//
// Every backend error is wrapped with ErrUnavailable. The engine decides
// whether that fails closed (default) or open.
package revocation
