package goJWT

import (
	"fmt"
	"time"
)

// Verify checks token and returns its payload. The stages run in order and
// the first failure is returned; no payload is returned with an error.
//
//  1. three segments, header and payload non-empty (ErrMalformedToken)
//  2. header and payload decode (ErrMalformedToken)
//  3. alg is registered and allow-listed (ErrUnsupportedAlgorithm, ErrAlgorithmNotAllowed)
//  4. signature over the original segments (ErrInvalidSignature, ErrInvalidKeyType)
//  5. claims (ErrTokenExpired, ErrTokenNotActive, *Mismatch)
//
// key is the HMAC secret or a PEM public key, certificate or private key.
// When opts.Algorithms is empty only the algorithms of the key family are
// accepted, and None never is.
func Verify(token string, key []byte, opts VerifyOptions) (Payload, error) {
	km, err := ParseVerificationKey(key)
	if err != nil {
		return nil, err
	}
	return VerifyWithKey(token, km, opts)
}

// VerifyWithKey is Verify with key material resolved ahead of time.
func VerifyWithKey(token string, key *KeyMaterial, opts VerifyOptions) (Payload, error) {
	t, err := VerifyComplete(token, key, opts)
	if err != nil {
		return nil, err
	}
	return t.Payload, nil
}

// VerifyComplete is VerifyWithKey returning the header and signature too.
func VerifyComplete(token string, key *KeyMaterial, opts VerifyOptions) (*DecodedToken, error) {
	now := clock(opts.Now)

	t, err := decodeToken(token, opts.JSON)
	if err != nil {
		return nil, err
	}
	if err := checkSignature(t, key, opts.Algorithms); err != nil {
		return nil, err
	}
	if err := validateClaims(t.Payload, opts, now); err != nil {
		return nil, err
	}
	return t, nil
}

func checkSignature(t *DecodedToken, key *KeyMaterial, allowed []Algorithm) error {
	alg, err := t.Header.Algorithm()
	if err != nil {
		return err
	}
	if len(allowed) == 0 {
		allowed = key.allowedAlgorithms()
	}
	if !containsAlgorithm(allowed, alg) {
		return fmt.Errorf("%w: %s", ErrAlgorithmNotAllowed, alg)
	}
	entry, err := lookup(alg)
	if err != nil {
		return err
	}
	return entry.verify(t.SigningInput(), t.Signature, key)
}

// nowSeconds is the clock snapshot used by claim checks.
func nowSeconds(now time.Time) float64 {
	return float64(now.Unix())
}
