package goJWT

import (
	"fmt"
	"time"
)

// Sign encodes payload as a compact token signed with key.
//
// For HS* key is the shared secret. For RS*, PS*, ES* and EdDSA it is a PEM
// private key. For None it must be empty. When payload is *Claims, iat is
// added (unless NoTimestamp or already present) together with the claims
// named by opts; payload itself is not modified.
func Sign(payload Payload, key []byte, opts SignOptions) (string, error) {
	km, err := ParseSigningKey(opts.algorithm(), key)
	if err != nil {
		return "", err
	}
	return SignWithKey(payload, km, opts)
}

// SignWithKey is Sign with key material resolved ahead of time.
func SignWithKey(payload Payload, key *KeyMaterial, opts SignOptions) (string, error) {
	alg := opts.algorithm()
	entry, err := lookup(alg)
	if err != nil {
		return "", err
	}
	now := clock(opts.Now)

	_, isClaims := payload.(*Claims)
	header, err := newHeader(alg, opts.KeyID, opts.Headers, isClaims)
	if err != nil {
		return "", err
	}
	headerJSON, err := header.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	body, err := foldClaims(payload, opts, now)
	if err != nil {
		return "", err
	}
	payloadJSON, err := encodePayload(body)
	if err != nil {
		return "", err
	}
	if len(payloadJSON) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidPayloadShape)
	}

	signingInput := EncodeSegment(headerJSON) + "." + EncodeSegment(payloadJSON)
	sig, err := entry.sign(signingInput, key)
	if err != nil {
		return "", err
	}
	return signingInput + "." + EncodeSegment(sig), nil
}

func foldClaims(payload Payload, opts SignOptions, now time.Time) (Payload, error) {
	claims, ok := payload.(*Claims)
	if !ok {
		if _, opaque := payload.(Opaque); opaque && opts.hasClaimOptions() {
			return nil, fmt.Errorf("%w: claim options require a claims payload", ErrInvalidPayloadShape)
		}
		return payload, nil
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: nil claims", ErrInvalidPayloadShape)
	}

	out := claims.Clone()
	if !opts.NoTimestamp && !out.Has(ClaimIssuedAt) {
		out.Set(ClaimIssuedAt, now.Unix())
	}

	set := func(name string, value any) error {
		if out.Has(name) {
			return fmt.Errorf("%w: payload already has %q", ErrInvalidPayloadShape, name)
		}
		out.Set(name, value)
		return nil
	}
	setSpan := func(name string, span TimeSpan) error {
		if span.IsZero() {
			return nil
		}
		secs, err := span.Resolve(now)
		if err != nil {
			return err
		}
		return set(name, secs)
	}

	if err := setSpan(ClaimExpiresAt, opts.ExpiresIn); err != nil {
		return nil, err
	}
	if err := setSpan(ClaimNotBefore, opts.NotBefore); err != nil {
		return nil, err
	}
	switch len(opts.Audience) {
	case 0:
	case 1:
		if err := set(ClaimAudience, opts.Audience[0]); err != nil {
			return nil, err
		}
	default:
		aud := make([]string, len(opts.Audience))
		copy(aud, opts.Audience)
		if err := set(ClaimAudience, aud); err != nil {
			return nil, err
		}
	}
	for _, c := range [...]struct{ name, value string }{
		{ClaimIssuer, opts.Issuer},
		{ClaimSubject, opts.Subject},
		{ClaimJWTID, opts.JWTID},
	} {
		if c.value == "" {
			continue
		}
		if err := set(c.name, c.value); err != nil {
			return nil, err
		}
	}
	return out, nil
}
