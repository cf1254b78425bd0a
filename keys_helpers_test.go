package goJWT

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"
)

type testKeyPair struct {
	private []byte
	public  []byte
}

var (
	testKeysOnce sync.Once
	testKeys     map[string]testKeyPair
	testKeysErr  error
)

var testHMACSecret = []byte("0123456789abcdef0123456789abcdef")

// keysFor returns PEM encoded key pairs: "rsa", "rsa-other", "p256", "p384",
// "p521", "ed25519".
func keysFor(t testing.TB, name string) testKeyPair {
	t.Helper()

	testKeysOnce.Do(func() {
		testKeys, testKeysErr = generateTestKeys()
	})
	if testKeysErr != nil {
		t.Fatalf("generate test keys: %v", testKeysErr)
	}
	kp, ok := testKeys[name]
	if !ok {
		t.Fatalf("unknown test key %q", name)
	}
	return kp
}

func generateTestKeys() (map[string]testKeyPair, error) {
	out := make(map[string]testKeyPair, 6)

	for _, name := range []string{"rsa", "rsa-other"} {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
		kp, err := pemPair(k, &k.PublicKey)
		if err != nil {
			return nil, err
		}
		out[name] = kp
	}

	for name, curve := range map[string]elliptic.Curve{
		"p256": elliptic.P256(),
		"p384": elliptic.P384(),
		"p521": elliptic.P521(),
	} {
		k, err := ecdsa.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, err
		}
		kp, err := pemPair(k, &k.PublicKey)
		if err != nil {
			return nil, err
		}
		out[name] = kp
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	kp, err := pemPair(priv, pub)
	if err != nil {
		return nil, err
	}
	out["ed25519"] = kp

	return out, nil
}

func pemPair(priv, pub any) (testKeyPair, error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return testKeyPair{}, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return testKeyPair{}, err
	}
	return testKeyPair{
		private: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		public:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
	}, nil
}

// keyPairForAlgorithm returns signing and verification keys for alg.
func keyPairForAlgorithm(t testing.TB, alg Algorithm) (sign, verify []byte) {
	t.Helper()

	switch alg.Family() {
	case FamilyHMAC:
		return testHMACSecret, testHMACSecret
	case FamilyRSA:
		kp := keysFor(t, "rsa")
		return kp.private, kp.public
	case FamilyECDSA:
		name := map[Algorithm]string{ES256: "p256", ES384: "p384", ES512: "p521"}[alg]
		kp := keysFor(t, name)
		return kp.private, kp.public
	case FamilyEdDSA:
		kp := keysFor(t, "ed25519")
		return kp.private, kp.public
	default:
		return nil, nil
	}
}

// fixedClock returns a clock pinned to secs.
func fixedClock(secs int64) func() time.Time {
	return func() time.Time { return time.Unix(secs, 0) }
}
