package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/MrEthical07/goJWT"
)

// generateKey returns a throwaway signing key for alg: a random secret for
// HS* and a PKCS8 PEM private key otherwise.
func generateKey(alg goJWT.Algorithm) ([]byte, error) {
	var (
		priv any
		err  error
	)
	switch alg.Family() {
	case goJWT.FamilyHMAC:
		secret := make([]byte, 64)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		return secret, nil
	case goJWT.FamilyRSA:
		priv, err = rsa.GenerateKey(rand.Reader, 2048)
	case goJWT.FamilyECDSA:
		curve := map[goJWT.Algorithm]elliptic.Curve{
			goJWT.ES256: elliptic.P256(),
			goJWT.ES384: elliptic.P384(),
			goJWT.ES512: elliptic.P521(),
		}[alg]
		priv, err = ecdsa.GenerateKey(curve, rand.Reader)
	default:
		_, priv, err = ed25519.GenerateKey(rand.Reader)
	}
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
