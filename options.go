package goJWT

import "time"

// SignOptions configures Sign.
type SignOptions struct {
	// Algorithm defaults to HS256.
	Algorithm Algorithm
	// ExpiresIn and NotBefore are written as exp and nbf.
	ExpiresIn TimeSpan
	NotBefore TimeSpan
	// Audience is written as a string when it has one entry, as an array otherwise.
	Audience []string
	Subject  string
	Issuer   string
	JWTID    string
	// NoTimestamp suppresses the automatic iat claim.
	NoTimestamp bool
	// Headers are extra header fields. alg cannot be set here.
	Headers map[string]any
	// KeyID is written as the kid header.
	KeyID string
	// Now overrides the clock; it is read once per call.
	Now func() time.Time
}

func (o SignOptions) algorithm() Algorithm {
	if o.Algorithm == 0 {
		return HS256
	}
	return o.Algorithm
}

func (o SignOptions) hasClaimOptions() bool {
	return !o.ExpiresIn.IsZero() ||
		!o.NotBefore.IsZero() ||
		len(o.Audience) > 0 ||
		o.Subject != "" ||
		o.Issuer != "" ||
		o.JWTID != ""
}

// VerifyOptions configures Verify.
type VerifyOptions struct {
	// Algorithms is the allow-list for the header alg. When empty it is
	// derived from the key family and never includes None; listing the
	// algorithms explicitly is strongly preferred.
	Algorithms []Algorithm
	// Audience passes when the token aud contains any of these values.
	Audience []string
	Issuer   string
	Subject  string
	JWTID    string

	IgnoreExpiration bool
	IgnoreNotBefore  bool
	// ClockTolerance widens the exp, nbf and MaxAge windows. Whole seconds.
	ClockTolerance time.Duration
	// MaxAge rejects tokens whose iat is older than this.
	MaxAge time.Duration

	// Now overrides the clock; it is read once per call.
	Now func() time.Time
	// JSON fails verification when the payload is not a JSON object.
	JSON bool
}

// DecodeOptions configures Decode and DecodeComplete.
type DecodeOptions struct {
	// JSON fails decoding when the payload is not a JSON object instead of
	// returning it as Opaque.
	JSON bool
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
