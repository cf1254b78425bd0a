// Package goJWT signs, verifies and decodes JSON Web Tokens in compact form.
//
// The package has two layers. The functions [Sign], [Verify] and [Decode]
// are pure: they take key bytes and options, hold no state and are safe to
// call from any goroutine. [Engine], assembled by [Builder], wraps them with
// keys resolved once, a kid keyed verification key set, a Redis backed
// revocation list, audit events, metrics and bounded async variants.
//
// # Security defaults
//
//   - Verify only accepts header alg values on its allow-list. When the
//     caller gives none the list is derived from the key family and never
//     includes none; unsigned tokens are accepted only when None is listed
//     explicitly.
//   - PEM key material is never accepted as an HMAC secret, which closes the
//     RS256 to HS256 confusion attack. RSA keys must be at least 2048 bits.
//   - Signatures are compared in constant time by the underlying primitives.
//   - Decode never checks anything. Do not base trust decisions on it.
//
// # Payloads
//
// A payload is either [*Claims], an ordered JSON object, or [Opaque] bytes.
// Registered claims (exp, nbf, iat, aud, iss, sub, jti) are folded in and
// checked only for *Claims.
package goJWT
