package goJWT

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testNow = int64(1700000000)

func TestRoundTripEveryAlgorithm(t *testing.T) {
	for _, alg := range Algorithms() {
		t.Run(alg.String(), func(t *testing.T) {
			signKey, verifyKey := keyPairForAlgorithm(t, alg)
			claims := NewClaims().Set("sub", "alice").Set("role", "admin")

			token, err := Sign(claims, signKey, SignOptions{
				Algorithm: alg,
				ExpiresIn: In(time.Hour),
				Now:       fixedClock(testNow),
			})
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}

			p, err := Verify(token, verifyKey, VerifyOptions{
				Algorithms: []Algorithm{alg},
				Now:        fixedClock(testNow + 10),
			})
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			got, ok := p.(*Claims)
			if !ok {
				t.Fatalf("expected *Claims, got %T", p)
			}
			if sub, _ := got.Subject(); sub != "alice" {
				t.Fatalf("sub = %q", sub)
			}
			if role, _ := got.Get("role"); role != "admin" {
				t.Fatalf("role = %v", role)
			}

			// the same token also verifies with the derived allow-list
			if _, err := Verify(token, verifyKey, VerifyOptions{Now: fixedClock(testNow)}); err != nil {
				t.Fatalf("Verify with derived allow-list: %v", err)
			}
		})
	}
}

func TestEndToEndExample(t *testing.T) {
	secret := []byte("shhhhh-this-is-a-long-enough-secret")
	token, err := Sign(NewClaims().Set("sub", "alice"), secret, SignOptions{
		Algorithm: HS256,
		ExpiresIn: Span("1h"),
		Now:       fixedClock(testNow),
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	p, err := Verify(token, secret, VerifyOptions{
		Algorithms: []Algorithm{HS256},
		Now:        fixedClock(testNow + 60),
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	claims := p.(*Claims)

	keys := claims.Keys()
	if strings.Join(keys, ",") != "sub,iat,exp" {
		t.Fatalf("unexpected claims %v", keys)
	}
	iat, _, _ := claims.IssuedAt()
	exp, _, _ := claims.ExpiresAt()
	if iat.Unix() != testNow || exp.Unix() != testNow+3600 {
		t.Fatalf("iat=%d exp=%d", iat.Unix(), exp.Unix())
	}

	header, err := DecodeComplete(token, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeComplete: %v", err)
	}
	raw, _ := DecodeSegment(header.Raw[0])
	if string(raw) != `{"alg":"HS256","typ":"JWT"}` {
		t.Fatalf("header = %s", raw)
	}
}

func TestOpaqueHeaderOmitsType(t *testing.T) {
	token, err := Sign(Opaque("hello"), testHMACSecret, SignOptions{})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	dt, err := DecodeComplete(token, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeComplete: %v", err)
	}
	raw, _ := DecodeSegment(dt.Raw[0])
	if string(raw) != `{"alg":"HS256"}` {
		t.Fatalf("header = %s", raw)
	}

	token, err = Sign(Opaque("hello"), testHMACSecret, SignOptions{Headers: map[string]any{"typ": "custom"}})
	if err != nil {
		t.Fatalf("Sign with typ: %v", err)
	}
	dt, err = DecodeComplete(token, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeComplete: %v", err)
	}
	if dt.Header.Type() != "custom" {
		t.Fatalf("typ = %q, want custom", dt.Header.Type())
	}
}

func TestSignRejectsOverflowingSpan(t *testing.T) {
	for _, span := range []TimeSpan{
		Span("9223372036854775807"),
		Span("9223372036854775000"),
	} {
		_, err := Sign(NewClaims(), testHMACSecret, SignOptions{ExpiresIn: span, Now: fixedClock(testNow)})
		if !errors.Is(err, ErrInvalidTimeSpan) {
			t.Fatalf("%s: expected ErrInvalidTimeSpan, got %v", span, err)
		}
	}
}

func TestSignDoesNotMutateClaims(t *testing.T) {
	claims := NewClaims().Set("sub", "bob")
	_, err := Sign(claims, testHMACSecret, SignOptions{
		ExpiresIn: In(time.Minute),
		Audience:  []string{"a", "b"},
		Issuer:    "iss",
		JWTID:     "j",
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if claims.Len() != 1 {
		t.Fatalf("caller claims mutated: %v", claims.Keys())
	}
}

func TestSignClaimOptions(t *testing.T) {
	token, err := Sign(NewClaims(), testHMACSecret, SignOptions{
		ExpiresIn: AtUnix(testNow + 100),
		NotBefore: In(30 * time.Second),
		Audience:  []string{"api", "web"},
		Subject:   "s",
		Issuer:    "i",
		JWTID:     "j",
		Now:       fixedClock(testNow),
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	p, err := Decode(token, DecodeOptions{JSON: true})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	c := p.(*Claims)
	data, _ := c.MarshalJSON()
	want := `{"iat":1700000000,"exp":1700000100,"nbf":1700000030,"aud":["api","web"],"iss":"i","sub":"s","jti":"j"}`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}

	single, err := Sign(NewClaims(), testHMACSecret, SignOptions{Audience: []string{"api"}, NoTimestamp: true})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	p, _ = Decode(single, DecodeOptions{})
	data, _ = p.(*Claims).MarshalJSON()
	if string(data) != `{"aud":"api"}` {
		t.Fatalf("single audience encoding %s", data)
	}
}

func TestSignKeepsExistingIAT(t *testing.T) {
	token, err := Sign(NewClaims().Set("iat", 5), testHMACSecret, SignOptions{Now: fixedClock(testNow)})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	p, _ := Decode(token, DecodeOptions{})
	iat, _, _ := p.(*Claims).IssuedAt()
	if iat.Unix() != 5 {
		t.Fatalf("iat overwritten: %d", iat.Unix())
	}
}

func TestSignRejectsConflictingClaims(t *testing.T) {
	cases := map[string]SignOptions{
		"exp": {ExpiresIn: In(time.Minute)},
		"aud": {Audience: []string{"x"}},
		"iss": {Issuer: "x"},
		"sub": {Subject: "x"},
		"jti": {JWTID: "x"},
		"nbf": {NotBefore: In(time.Second)},
	}
	for claim, opts := range cases {
		t.Run(claim, func(t *testing.T) {
			_, err := Sign(NewClaims().Set(claim, "already"), testHMACSecret, opts)
			if !errors.Is(err, ErrInvalidPayloadShape) {
				t.Fatalf("expected ErrInvalidPayloadShape, got %v", err)
			}
		})
	}
}

func TestSignOpaquePayload(t *testing.T) {
	token, err := Sign(Opaque("hello world"), testHMACSecret, SignOptions{})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	p, err := Verify(token, testHMACSecret, VerifyOptions{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if o, ok := p.(Opaque); !ok || string(o) != "hello world" {
		t.Fatalf("unexpected payload %#v", p)
	}

	if _, err := Sign(Opaque("x"), testHMACSecret, SignOptions{ExpiresIn: In(time.Minute)}); !errors.Is(err, ErrInvalidPayloadShape) {
		t.Fatalf("expected ErrInvalidPayloadShape for claim options on opaque payload, got %v", err)
	}
	if _, err := Sign(Opaque(""), testHMACSecret, SignOptions{}); !errors.Is(err, ErrInvalidPayloadShape) {
		t.Fatalf("expected ErrInvalidPayloadShape for empty payload, got %v", err)
	}
	if _, err := Verify(token, testHMACSecret, VerifyOptions{JSON: true}); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken with JSON forced, got %v", err)
	}
}

func TestSignInvalidTimeSpan(t *testing.T) {
	_, err := Sign(NewClaims(), testHMACSecret, SignOptions{ExpiresIn: Span("soon")})
	if !errors.Is(err, ErrInvalidTimeSpan) {
		t.Fatalf("expected ErrInvalidTimeSpan, got %v", err)
	}
}

func TestSignHeaders(t *testing.T) {
	token, err := Sign(NewClaims(), testHMACSecret, SignOptions{
		KeyID:   "key-1",
		Headers: map[string]any{"cty": "example"},
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	dt, err := DecodeComplete(token, DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeComplete: %v", err)
	}
	if dt.Header.KeyID() != "key-1" {
		t.Fatalf("kid = %q", dt.Header.KeyID())
	}
	if v, _ := dt.Header.Get("cty"); v != "example" {
		t.Fatalf("cty = %v", v)
	}

	if _, err := Sign(NewClaims(), testHMACSecret, SignOptions{Headers: map[string]any{"alg": "none"}}); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestTamperSensitivity(t *testing.T) {
	for _, alg := range []Algorithm{HS256, RS256, PS256, ES256, EdDSA} {
		t.Run(alg.String(), func(t *testing.T) {
			signKey, verifyKey := keyPairForAlgorithm(t, alg)
			token, err := Sign(NewClaims().Set("sub", "alice").Set("n", 1), signKey, SignOptions{Algorithm: alg})
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			opts := VerifyOptions{Algorithms: []Algorithm{alg}}

			for i := 0; i < len(token); i++ {
				if token[i] == '.' {
					continue
				}
				for _, bit := range []byte{0x01, 0x02, 0x20} {
					b := []byte(token)
					b[i] ^= bit
					if b[i] == '.' {
						continue
					}
					_, err := Verify(string(b), verifyKey, opts)
					if err == nil {
						t.Fatalf("tampered token verified (byte %d, bit %#x)", i, bit)
					}
					if !isRejection(err) {
						t.Fatalf("unexpected error kind for tampered byte %d: %v", i, err)
					}
				}
			}
		})
	}
}

// isRejection reports the error kinds a modified token may produce. A flip
// inside alg can turn RS256 into PS256, which surfaces as an algorithm error
// instead of a signature error.
func isRejection(err error) bool {
	return errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrUnsupportedAlgorithm) ||
		errors.Is(err, ErrAlgorithmNotAllowed)
}

func TestAlgorithmConfusion(t *testing.T) {
	rsaKey := keysFor(t, "rsa")

	// An attacker signs HS256 with the RSA public key bytes as the secret.
	forged := forgeToken(t, `{"alg":"HS256","typ":"JWT"}`, `{"sub":"admin"}`, func(input string) []byte {
		sig, err := registry[HS256].method.Sign(input, rsaKey.public)
		if err != nil {
			t.Fatalf("forge: %v", err)
		}
		return sig
	})

	_, err := Verify(forged, rsaKey.public, VerifyOptions{Algorithms: []Algorithm{RS256}})
	if !errors.Is(err, ErrAlgorithmNotAllowed) {
		t.Fatalf("expected ErrAlgorithmNotAllowed, got %v", err)
	}
	_, err = Verify(forged, rsaKey.public, VerifyOptions{})
	if !errors.Is(err, ErrAlgorithmNotAllowed) {
		t.Fatalf("derived allow-list must reject HS256 for an RSA key, got %v", err)
	}
	_, err = Verify(forged, rsaKey.public, VerifyOptions{Algorithms: []Algorithm{HS256, RS256}})
	if !errors.Is(err, ErrInvalidKeyType) {
		t.Fatalf("PEM key must never act as an HMAC secret, got %v", err)
	}
}

func TestNoneAlgorithm(t *testing.T) {
	token, err := Sign(NewClaims().Set("sub", "x"), nil, SignOptions{Algorithm: None})
	if err != nil {
		t.Fatalf("Sign none: %v", err)
	}
	if !strings.HasSuffix(token, ".") {
		t.Fatalf("none token must have an empty signature: %s", token)
	}

	if _, err := Verify(token, nil, VerifyOptions{}); !errors.Is(err, ErrAlgorithmNotAllowed) {
		t.Fatalf("none must not be accepted implicitly, got %v", err)
	}
	if _, err := Verify(token, testHMACSecret, VerifyOptions{}); !errors.Is(err, ErrAlgorithmNotAllowed) {
		t.Fatalf("none must not be accepted with an HMAC key, got %v", err)
	}
	if _, err := Verify(token, nil, VerifyOptions{Algorithms: []Algorithm{None}}); err != nil {
		t.Fatalf("explicit none should verify: %v", err)
	}
	if _, err := Verify(token, testHMACSecret, VerifyOptions{Algorithms: []Algorithm{None}}); !errors.Is(err, ErrInvalidKeyType) {
		t.Fatalf("none with a key must fail, got %v", err)
	}

	withSig := token + "AAAA"
	if _, err := Verify(withSig, nil, VerifyOptions{Algorithms: []Algorithm{None}}); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("none with a signature must fail, got %v", err)
	}

	hsToken, _ := Sign(NewClaims(), testHMACSecret, SignOptions{})
	stripped := hsToken[:strings.LastIndexByte(hsToken, '.')+1]
	if _, err := Verify(stripped, testHMACSecret, VerifyOptions{}); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("stripped signature must fail, got %v", err)
	}
}

func TestVerifyUnsupportedAlgorithm(t *testing.T) {
	forged := forgeToken(t, `{"alg":"HS1024"}`, `{"sub":"x"}`, func(string) []byte { return []byte("sig") })
	if _, err := Verify(forged, testHMACSecret, VerifyOptions{}); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	valid, _ := Sign(NewClaims(), testHMACSecret, SignOptions{})
	parts := strings.Split(valid, ".")

	cases := map[string]string{
		"empty":            "",
		"two segments":     parts[0] + "." + parts[1],
		"four segments":    valid + ".x",
		"empty header":     "." + parts[1] + "." + parts[2],
		"empty payload":    parts[0] + ".." + parts[2],
		"bad base64":       parts[0] + ".!!!." + parts[2],
		"padded":           parts[0] + "=." + parts[1] + "." + parts[2],
		"header not json":  EncodeSegment([]byte("nope")) + "." + parts[1] + "." + parts[2],
		"header no alg":    EncodeSegment([]byte(`{"typ":"JWT"}`)) + "." + parts[1] + "." + parts[2],
		"header alg num":   EncodeSegment([]byte(`{"alg":1}`)) + "." + parts[1] + "." + parts[2],
		"bad sig encoding": parts[0] + "." + parts[1] + ".a",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Verify(tok, testHMACSecret, VerifyOptions{}); !errors.Is(err, ErrMalformedToken) {
				t.Fatalf("expected ErrMalformedToken, got %v", err)
			}
		})
	}
}

func TestVerifyWrongKey(t *testing.T) {
	token, _ := Sign(NewClaims(), testHMACSecret, SignOptions{})
	if _, err := Verify(token, []byte("another-secret-of-reasonable-size!"), VerifyOptions{}); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	rsaToken, _ := Sign(NewClaims(), keysFor(t, "rsa").private, SignOptions{Algorithm: RS256})
	if _, err := Verify(rsaToken, keysFor(t, "rsa-other").public, VerifyOptions{}); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for other RSA key, got %v", err)
	}
	if _, err := Verify(rsaToken, keysFor(t, "p256").public, VerifyOptions{Algorithms: []Algorithm{RS256}}); !errors.Is(err, ErrInvalidKeyType) {
		t.Fatalf("expected ErrInvalidKeyType for EC key, got %v", err)
	}
}

func TestVerifyReturnsNoPayloadOnError(t *testing.T) {
	token, _ := Sign(NewClaims(), testHMACSecret, SignOptions{ExpiresIn: AtUnix(1)})
	p, err := Verify(token, testHMACSecret, VerifyOptions{})
	if err == nil || p != nil {
		t.Fatalf("expected nil payload with error, got %v, %v", p, err)
	}
}

func TestVerifyCompleteExposesParts(t *testing.T) {
	km, _ := ParseVerificationKey(testHMACSecret)
	token, _ := Sign(NewClaims().Set("sub", "x"), testHMACSecret, SignOptions{KeyID: "k"})
	dt, err := VerifyComplete(token, km, VerifyOptions{})
	if err != nil {
		t.Fatalf("VerifyComplete: %v", err)
	}
	if dt.Header.KeyID() != "k" || len(dt.Signature) != 32 {
		t.Fatalf("unexpected decoded token %+v", dt)
	}
	if dt.SigningInput()+"."+dt.Raw[2] != token {
		t.Fatal("raw segments do not rebuild the token")
	}
}

func forgeToken(t *testing.T, header, payload string, sign func(string) []byte) string {
	t.Helper()
	input := EncodeSegment([]byte(header)) + "." + EncodeSegment([]byte(payload))
	return input + "." + EncodeSegment(sign(input))
}
