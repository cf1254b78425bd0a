package goJWT

import (
	"fmt"
	"strings"
)

// Algorithm is the closed set of signature algorithms understood by goJWT.
//
// The zero value is not a valid algorithm; SignOptions treats it as HS256.
type Algorithm uint8

const (
	// HS256 is HMAC with SHA-256.
	HS256 Algorithm = iota + 1
	// HS384 is HMAC with SHA-384.
	HS384
	// HS512 is HMAC with SHA-512.
	HS512
	// RS256 is RSASSA-PKCS1-v1_5 with SHA-256.
	RS256
	// RS384 is RSASSA-PKCS1-v1_5 with SHA-384.
	RS384
	// RS512 is RSASSA-PKCS1-v1_5 with SHA-512.
	RS512
	// PS256 is RSASSA-PSS with SHA-256.
	PS256
	// PS384 is RSASSA-PSS with SHA-384.
	PS384
	// PS512 is RSASSA-PSS with SHA-512.
	PS512
	// ES256 is ECDSA over P-256 with SHA-256.
	ES256
	// ES384 is ECDSA over P-384 with SHA-384.
	ES384
	// ES512 is ECDSA over P-521 with SHA-512.
	ES512
	// EdDSA is Ed25519.
	EdDSA
	// None produces unsigned tokens. It is only accepted by verifiers that
	// list it explicitly.
	None

	algorithmCount
)

// Family groups algorithms that share a key type.
type Family uint8

const (
	// FamilyHMAC algorithms use a shared secret.
	FamilyHMAC Family = iota + 1
	// FamilyRSA algorithms use RSA key pairs. PKCS1-v1_5 and PSS share keys.
	FamilyRSA
	// FamilyECDSA algorithms use EC key pairs on a fixed curve.
	FamilyECDSA
	// FamilyEdDSA algorithms use Ed25519 key pairs.
	FamilyEdDSA
	// FamilyNone takes no key.
	FamilyNone
)

func (f Family) String() string {
	switch f {
	case FamilyHMAC:
		return "hmac"
	case FamilyRSA:
		return "rsa"
	case FamilyECDSA:
		return "ecdsa"
	case FamilyEdDSA:
		return "eddsa"
	case FamilyNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a header alg value to an Algorithm. Identifiers are
// case sensitive except for "none".
func ParseAlgorithm(name string) (Algorithm, error) {
	if strings.EqualFold(name, "none") {
		return None, nil
	}
	for alg := HS256; alg < algorithmCount; alg++ {
		if registry[alg].name == name {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
}

// MustParseAlgorithm is ParseAlgorithm for package level variables and tests.
func MustParseAlgorithm(name string) Algorithm {
	alg, err := ParseAlgorithm(name)
	if err != nil {
		panic(err)
	}
	return alg
}

// ParseAlgorithms parses a list of identifiers, e.g. from a comma separated flag.
func ParseAlgorithms(names []string) ([]Algorithm, error) {
	out := make([]Algorithm, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		alg, err := ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		out = append(out, alg)
	}
	return out, nil
}

// Valid reports whether a is a registered algorithm.
func (a Algorithm) Valid() bool {
	return a >= HS256 && a < algorithmCount
}

// String returns the JOSE identifier, e.g. "HS256".
func (a Algorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
	return registry[a].name
}

// Family returns the key family of a.
func (a Algorithm) Family() Family {
	if !a.Valid() {
		return 0
	}
	return registry[a].family
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so an Algorithm can be
// loaded from environment variables and flags.
func (a *Algorithm) UnmarshalText(text []byte) error {
	alg, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = alg
	return nil
}

// Algorithms returns every registered algorithm except None.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, int(algorithmCount)-1)
	for alg := HS256; alg < algorithmCount; alg++ {
		if alg != None {
			out = append(out, alg)
		}
	}
	return out
}

func containsAlgorithm(list []Algorithm, alg Algorithm) bool {
	for _, a := range list {
		if a == alg {
			return true
		}
	}
	return false
}
