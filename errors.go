package goJWT

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goJWT/timespan"
)

var (
	// ErrMalformedToken is returned when a token does not split into three segments or a segment does not decode.
	ErrMalformedToken = errors.New("malformed token")
	// ErrUnsupportedAlgorithm is returned for an algorithm identifier outside the registry.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrInvalidKeyType is returned when key material does not fit the algorithm family.
	ErrInvalidKeyType = errors.New("invalid key type for algorithm")
	// ErrAlgorithmNotAllowed is returned when the token alg is outside the verifier allow-list.
	ErrAlgorithmNotAllowed = errors.New("algorithm not allowed")
	// ErrInvalidSignature is returned when the signature does not match the signing input.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrTokenExpired is returned when exp (or iat plus max age) has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenNotActive is returned when nbf is still in the future.
	ErrTokenNotActive = errors.New("token not active")
	// ErrAudienceMismatch is returned when aud does not contain the expected audience.
	ErrAudienceMismatch = errors.New("audience mismatch")
	// ErrIssuerMismatch is returned when iss differs from the expected issuer.
	ErrIssuerMismatch = errors.New("issuer mismatch")
	// ErrSubjectMismatch is returned when sub differs from the expected subject.
	ErrSubjectMismatch = errors.New("subject mismatch")
	// ErrJWTIDMismatch is returned when jti differs from the expected token id.
	ErrJWTIDMismatch = errors.New("jwt id mismatch")
	// ErrInvalidPayloadShape is returned when claim options target a non-mapping payload or the payload cannot be encoded.
	ErrInvalidPayloadShape = errors.New("invalid payload shape")
	// ErrInvalidHeader is returned when caller supplied headers try to set reserved fields.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrInvalidTimeSpan is returned when a human time span cannot be parsed.
	ErrInvalidTimeSpan = timespan.ErrInvalidTimeSpan
	// ErrDecoding is returned for invalid base64url input.
	ErrDecoding = errors.New("base64url decoding failed")

	// ErrUnknownKeyID is returned when the kid header does not select a configured verification key.
	ErrUnknownKeyID = errors.New("unknown key id")
	// ErrTokenRevoked is returned when the token jti is on the revocation list.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrRevocationUnavailable is returned when the revocation backend cannot be consulted.
	ErrRevocationUnavailable = errors.New("revocation backend unavailable")
	// ErrInvalidConfig is returned by Config.Validate and Builder.Build.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEngineClosed is returned by Engine methods after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// ClaimError reports which claim failed validation. It unwraps to one of the
// claim sentinels (ErrTokenExpired, ErrAudienceMismatch, ...) so callers can
// keep using errors.Is.
type ClaimError struct {
	Claim    string
	Expected any
	Actual   any
	// At is the instant carried by exp, nbf or iat for time based failures.
	At  time.Time
	Err error
}

func (e *ClaimError) Error() string {
	switch {
	case !e.At.IsZero():
		return fmt.Sprintf("%v: %s %s", e.Err, e.Claim, e.At.UTC().Format(time.RFC3339))
	case e.Expected != nil:
		return fmt.Sprintf("%v: %s expected %v, got %v", e.Err, e.Claim, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("%v: %s", e.Err, e.Claim)
	}
}

func (e *ClaimError) Unwrap() error {
	return e.Err
}
