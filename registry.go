package goJWT

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// algorithmEntry pairs an Algorithm with the primitive that signs and
// verifies for it. Primitives come from golang-jwt; the entry adds the key
// family gate in front of them.
type algorithmEntry struct {
	name      string
	family    Family
	method    jwt.SigningMethod
	curveBits int
}

var registry = [algorithmCount]algorithmEntry{
	HS256: {name: "HS256", family: FamilyHMAC, method: jwt.SigningMethodHS256},
	HS384: {name: "HS384", family: FamilyHMAC, method: jwt.SigningMethodHS384},
	HS512: {name: "HS512", family: FamilyHMAC, method: jwt.SigningMethodHS512},
	RS256: {name: "RS256", family: FamilyRSA, method: jwt.SigningMethodRS256},
	RS384: {name: "RS384", family: FamilyRSA, method: jwt.SigningMethodRS384},
	RS512: {name: "RS512", family: FamilyRSA, method: jwt.SigningMethodRS512},
	PS256: {name: "PS256", family: FamilyRSA, method: jwt.SigningMethodPS256},
	PS384: {name: "PS384", family: FamilyRSA, method: jwt.SigningMethodPS384},
	PS512: {name: "PS512", family: FamilyRSA, method: jwt.SigningMethodPS512},
	ES256: {name: "ES256", family: FamilyECDSA, method: jwt.SigningMethodES256, curveBits: 256},
	ES384: {name: "ES384", family: FamilyECDSA, method: jwt.SigningMethodES384, curveBits: 384},
	ES512: {name: "ES512", family: FamilyECDSA, method: jwt.SigningMethodES512, curveBits: 521},
	EdDSA: {name: "EdDSA", family: FamilyEdDSA, method: jwt.SigningMethodEdDSA},
	None:  {name: "none", family: FamilyNone},
}

func lookup(alg Algorithm) (*algorithmEntry, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, uint8(alg))
	}
	return &registry[alg], nil
}

func (e *algorithmEntry) sign(signingInput string, key *KeyMaterial) ([]byte, error) {
	if e.family == FamilyNone {
		if !key.empty() {
			return nil, fmt.Errorf("%w: none takes no key", ErrInvalidKeyType)
		}
		return []byte{}, nil
	}

	k, err := key.signingKey(e)
	if err != nil {
		return nil, err
	}
	sig, err := e.method.Sign(signingInput, k)
	if err != nil {
		if isKeyError(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKeyType, e.name, err)
		}
		return nil, fmt.Errorf("sign %s: %w", e.name, err)
	}
	return sig, nil
}

func (e *algorithmEntry) verify(signingInput string, sig []byte, key *KeyMaterial) error {
	if e.family == FamilyNone {
		if len(sig) != 0 {
			return fmt.Errorf("%w: none tokens carry no signature", ErrInvalidSignature)
		}
		if !key.empty() {
			return fmt.Errorf("%w: none takes no key", ErrInvalidKeyType)
		}
		return nil
	}

	k, err := key.verificationKey(e)
	if err != nil {
		return err
	}
	if len(sig) == 0 {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}
	if err := e.method.Verify(signingInput, sig, k); err != nil {
		if isKeyError(err) {
			return fmt.Errorf("%w: %s: %v", ErrInvalidKeyType, e.name, err)
		}
		return fmt.Errorf("%w: %s", ErrInvalidSignature, e.name)
	}
	return nil
}

func isKeyError(err error) bool {
	return errors.Is(err, jwt.ErrInvalidKeyType) || errors.Is(err, jwt.ErrInvalidKey)
}
