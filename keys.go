package goJWT

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinRSAKeyBits is the smallest RSA modulus accepted for RS* and PS*.
const MinRSAKeyBits = 2048

var pemMarker = []byte("-----BEGIN")

// KeyMaterial is key material resolved for one algorithm family. It is
// immutable and safe to share between goroutines; Engine resolves its keys
// once at build time.
type KeyMaterial struct {
	family  Family
	secret  []byte
	private crypto.Signer
	public  crypto.PublicKey
}

// Family reports the key family.
func (k *KeyMaterial) Family() Family {
	if k == nil {
		return FamilyNone
	}
	return k.family
}

// CanSign reports whether the material holds a secret or a private key.
func (k *KeyMaterial) CanSign() bool {
	if k == nil {
		return false
	}
	return k.family == FamilyHMAC || k.private != nil
}

// publicHalf returns the verification half. HMAC material is returned as is.
func (k *KeyMaterial) publicHalf() (*KeyMaterial, error) {
	switch {
	case k == nil:
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKeyType)
	case k.family == FamilyHMAC || k.family == FamilyNone:
		return k, nil
	case k.public == nil:
		return nil, fmt.Errorf("%w: %s key has no public half", ErrInvalidKeyType, k.family)
	}
	return &KeyMaterial{family: k.family, public: k.public}, nil
}

func (k *KeyMaterial) empty() bool {
	return k == nil || k.family == FamilyNone
}

// ParseSigningKey resolves key for signing with alg: a raw secret for HS*,
// a PEM private key for RS*, PS*, ES* and EdDSA (raw 64 byte seeds are also
// accepted for EdDSA), and no key at all for None.
func ParseSigningKey(alg Algorithm, key []byte) (*KeyMaterial, error) {
	entry, err := lookup(alg)
	if err != nil {
		return nil, err
	}

	switch entry.family {
	case FamilyNone:
		if len(key) != 0 {
			return nil, fmt.Errorf("%w: none takes no key", ErrInvalidKeyType)
		}
		return &KeyMaterial{family: FamilyNone}, nil
	case FamilyHMAC:
		return parseSecret(key)
	case FamilyRSA:
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s requires a PEM encoded RSA private key: %v", ErrInvalidKeyType, entry.name, err)
		}
		return KeyFromCrypto(priv)
	case FamilyECDSA:
		priv, err := jwt.ParseECPrivateKeyFromPEM(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s requires a PEM encoded EC private key: %v", ErrInvalidKeyType, entry.name, err)
		}
		km, err := KeyFromCrypto(priv)
		if err != nil {
			return nil, err
		}
		if _, err := km.signingKey(entry); err != nil {
			return nil, err
		}
		return km, nil
	case FamilyEdDSA:
		priv, err := parseEdPrivateKey(key)
		if err != nil {
			return nil, err
		}
		return KeyFromCrypto(priv)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, entry.name)
}

// ParseVerificationKey resolves key for verification. The family is inferred
// from the bytes: PEM input is parsed as a public key, certificate or private
// key (whose public half is used); anything else is an HMAC secret; an empty
// key yields material that only None accepts.
func ParseVerificationKey(key []byte) (*KeyMaterial, error) {
	if len(key) == 0 {
		return &KeyMaterial{family: FamilyNone}, nil
	}
	if !bytes.Contains(key, pemMarker) {
		return parseSecret(key)
	}

	if pub, err := jwt.ParseRSAPublicKeyFromPEM(key); err == nil {
		return KeyFromCrypto(pub)
	}
	if pub, err := jwt.ParseECPublicKeyFromPEM(key); err == nil {
		return KeyFromCrypto(pub)
	}
	if pub, err := jwt.ParseEdPublicKeyFromPEM(key); err == nil {
		return KeyFromCrypto(pub)
	}
	if priv, err := jwt.ParseRSAPrivateKeyFromPEM(key); err == nil {
		return KeyFromCrypto(&priv.PublicKey)
	}
	if priv, err := jwt.ParseECPrivateKeyFromPEM(key); err == nil {
		return KeyFromCrypto(&priv.PublicKey)
	}
	if priv, err := jwt.ParseEdPrivateKeyFromPEM(key); err == nil {
		if signer, ok := priv.(crypto.Signer); ok {
			return KeyFromCrypto(signer.Public())
		}
	}
	return nil, fmt.Errorf("%w: unrecognised PEM key material", ErrInvalidKeyType)
}

// KeyFromCrypto wraps an already parsed key: []byte (HMAC secret),
// *rsa.PrivateKey, *rsa.PublicKey, *ecdsa.PrivateKey, *ecdsa.PublicKey,
// ed25519.PrivateKey or ed25519.PublicKey.
func KeyFromCrypto(key any) (*KeyMaterial, error) {
	switch k := key.(type) {
	case []byte:
		return parseSecret(k)
	case *rsa.PrivateKey:
		if err := checkRSASize(&k.PublicKey); err != nil {
			return nil, err
		}
		return &KeyMaterial{family: FamilyRSA, private: k, public: &k.PublicKey}, nil
	case *rsa.PublicKey:
		if err := checkRSASize(k); err != nil {
			return nil, err
		}
		return &KeyMaterial{family: FamilyRSA, public: k}, nil
	case *ecdsa.PrivateKey:
		return &KeyMaterial{family: FamilyECDSA, private: k, public: &k.PublicKey}, nil
	case *ecdsa.PublicKey:
		return &KeyMaterial{family: FamilyECDSA, public: k}, nil
	case ed25519.PrivateKey:
		if len(k) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("%w: ed25519 private key must be %d bytes", ErrInvalidKeyType, ed25519.PrivateKeySize)
		}
		return &KeyMaterial{family: FamilyEdDSA, private: k, public: k.Public()}, nil
	case ed25519.PublicKey:
		if len(k) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrInvalidKeyType, ed25519.PublicKeySize)
		}
		return &KeyMaterial{family: FamilyEdDSA, public: k}, nil
	case nil:
		return &KeyMaterial{family: FamilyNone}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidKeyType, key)
	}
}

// allowedAlgorithms is the allow-list implied by the key when the caller
// gives none. It never contains None.
func (k *KeyMaterial) allowedAlgorithms() []Algorithm {
	switch k.Family() {
	case FamilyHMAC:
		return []Algorithm{HS256, HS384, HS512}
	case FamilyRSA:
		return []Algorithm{RS256, RS384, RS512, PS256, PS384, PS512}
	case FamilyECDSA:
		pub, ok := k.public.(*ecdsa.PublicKey)
		if !ok {
			return nil
		}
		for _, alg := range []Algorithm{ES256, ES384, ES512} {
			if registry[alg].curveBits == pub.Curve.Params().BitSize {
				return []Algorithm{alg}
			}
		}
		return nil
	case FamilyEdDSA:
		return []Algorithm{EdDSA}
	default:
		return nil
	}
}

func (k *KeyMaterial) signingKey(e *algorithmEntry) (any, error) {
	if k == nil || k.family != e.family {
		return nil, fmt.Errorf("%w: %s needs a %s key, got %s", ErrInvalidKeyType, e.name, e.family, k.Family())
	}
	switch e.family {
	case FamilyHMAC:
		return k.secret, nil
	case FamilyECDSA:
		priv, ok := k.private.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an EC private key", ErrInvalidKeyType, e.name)
		}
		if priv.Curve.Params().BitSize != e.curveBits {
			return nil, fmt.Errorf("%w: %s needs a P-%d key, got %s", ErrInvalidKeyType, e.name, e.curveBits, priv.Curve.Params().Name)
		}
		return priv, nil
	default:
		if k.private == nil {
			return nil, fmt.Errorf("%w: %s needs a private key", ErrInvalidKeyType, e.name)
		}
		return k.private, nil
	}
}

func (k *KeyMaterial) verificationKey(e *algorithmEntry) (any, error) {
	if e.family == FamilyEdDSA && k.Family() == FamilyHMAC && len(k.secret) == ed25519.PublicKeySize {
		return ed25519.PublicKey(k.secret), nil
	}
	if k == nil || k.family != e.family {
		return nil, fmt.Errorf("%w: %s needs a %s key, got %s", ErrInvalidKeyType, e.name, e.family, k.Family())
	}
	switch e.family {
	case FamilyHMAC:
		return k.secret, nil
	case FamilyECDSA:
		pub, ok := k.public.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an EC public key", ErrInvalidKeyType, e.name)
		}
		if pub.Curve.Params().BitSize != e.curveBits {
			return nil, fmt.Errorf("%w: %s needs a P-%d key, got %s", ErrInvalidKeyType, e.name, e.curveBits, pub.Curve.Params().Name)
		}
		return pub, nil
	default:
		return k.public, nil
	}
}

func parseSecret(key []byte) (*KeyMaterial, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty HMAC secret", ErrInvalidKeyType)
	}
	if bytes.Contains(key, pemMarker) {
		return nil, fmt.Errorf("%w: PEM key material cannot be used as an HMAC secret", ErrInvalidKeyType)
	}
	secret := make([]byte, len(key))
	copy(secret, key)
	return &KeyMaterial{family: FamilyHMAC, secret: secret}, nil
}

func checkRSASize(pub *rsa.PublicKey) error {
	if pub == nil || pub.N == nil {
		return fmt.Errorf("%w: nil RSA key", ErrInvalidKeyType)
	}
	if bits := pub.N.BitLen(); bits < MinRSAKeyBits {
		return fmt.Errorf("%w: RSA key is %d bits, need at least %d", ErrInvalidKeyType, bits, MinRSAKeyBits)
	}
	return nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 private key: %v", ErrInvalidKeyType, err)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.Join(ErrInvalidKeyType, errors.New("invalid ed25519 private key type"))
	}
	return edKey, nil
}
