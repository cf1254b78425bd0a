package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrEthical07/goJWT"
	"go.uber.org/zap"
)

type command struct {
	cfg    cliConfig
	logger *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *command) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *command) fail(err error) int {
	fmt.Fprintf(c.stderr, "gojwt: %v\n", err)
	return 1
}

/*
====================================
SIGN
====================================
*/

func (c *command) sign(args []string) int {
	fs := c.flagSet("sign")
	var (
		algName   = fs.String("alg", c.cfg.Algorithm, "signing algorithm")
		keyFile   = fs.String("key", c.cfg.KeyFile, "key file: HMAC secret or PEM private key")
		kid       = fs.String("kid", c.cfg.KeyID, "kid header")
		issuer    = fs.String("iss", c.cfg.Issuer, "iss claim")
		subject   = fs.String("sub", "", "sub claim")
		audience  = fs.String("aud", strings.Join(c.cfg.Audience, ","), "aud claim, comma separated")
		jti       = fs.String("jti", "", "jti claim")
		noIAT     = fs.Bool("no-iat", false, "omit iat")
		claimsArg = fs.String("claims", "", `claims JSON, "@file" or "-" for stdin`)
		opaque    = fs.Bool("opaque", false, "sign the -claims input verbatim as an opaque payload")
		expiresIn = c.cfg.ExpiresIn
		notBefore goJWT.TimeSpan
	)
	fs.Func("exp", `expiry span, e.g. "1h" or "2 days"`, func(s string) error {
		return expiresIn.UnmarshalText([]byte(s))
	})
	fs.Func("nbf", "not-before span", func(s string) error {
		return notBefore.UnmarshalText([]byte(s))
	})
	if err := fs.Parse(args); err != nil {
		return 2
	}

	alg, err := goJWT.ParseAlgorithm(*algName)
	if err != nil {
		return c.fail(err)
	}
	key, err := loadKey(c.cfg.Key, *keyFile)
	if err != nil {
		return c.fail(err)
	}
	body, err := c.readInput(*claimsArg)
	if err != nil {
		return c.fail(err)
	}

	var payload goJWT.Payload
	switch {
	case *opaque:
		payload = goJWT.Opaque(body)
	case len(bytes.TrimSpace(body)) == 0:
		payload = goJWT.NewClaims()
	default:
		claims, err := goJWT.ParseClaims(body)
		if err != nil {
			return c.fail(fmt.Errorf("claims: %w", err))
		}
		payload = claims
	}

	token, err := goJWT.Sign(payload, key, goJWT.SignOptions{
		Algorithm:   alg,
		ExpiresIn:   expiresIn,
		NotBefore:   notBefore,
		Audience:    splitList(*audience),
		Subject:     *subject,
		Issuer:      *issuer,
		JWTID:       *jti,
		NoTimestamp: *noIAT,
		KeyID:       *kid,
	})
	if err != nil {
		return c.fail(err)
	}
	c.logger.Debug("token signed", zap.String("alg", alg.String()), zap.String("kid", *kid))
	fmt.Fprintln(c.stdout, token)
	return 0
}

/*
====================================
VERIFY
====================================
*/

func (c *command) verify(args []string) int {
	fs := c.flagSet("verify")
	var (
		algNames  = fs.String("alg", strings.Join(c.cfg.Algorithms, ","), "allowed algorithms, comma separated; derived from the key when empty")
		keyFile   = fs.String("key", c.cfg.KeyFile, "key file: HMAC secret or PEM public key")
		issuer    = fs.String("iss", c.cfg.Issuer, "expected iss")
		audience  = fs.String("aud", strings.Join(c.cfg.Audience, ","), "accepted aud values, comma separated")
		subject   = fs.String("sub", "", "expected sub")
		jti       = fs.String("jti", "", "expected jti")
		leeway    = fs.Duration("leeway", c.cfg.Leeway, "clock tolerance")
		maxAge    = fs.Duration("max-age", c.cfg.MaxAge, "maximum token age by iat")
		ignoreExp = fs.Bool("ignore-exp", false, "skip the exp check")
		ignoreNBF = fs.Bool("ignore-nbf", false, "skip the nbf check")
		jsonOnly  = fs.Bool("json", false, "reject payloads that are not JSON objects")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	allowed, err := goJWT.ParseAlgorithms(splitList(*algNames))
	if err != nil {
		return c.fail(err)
	}
	key, err := loadKey(c.cfg.Key, *keyFile)
	if err != nil {
		return c.fail(err)
	}
	token, err := c.readToken(fs.Args())
	if err != nil {
		return c.fail(err)
	}

	payload, err := goJWT.Verify(token, key, goJWT.VerifyOptions{
		Algorithms:       allowed,
		Audience:         splitList(*audience),
		Issuer:           *issuer,
		Subject:          *subject,
		JWTID:            *jti,
		IgnoreExpiration: *ignoreExp,
		IgnoreNotBefore:  *ignoreNBF,
		ClockTolerance:   *leeway,
		MaxAge:           *maxAge,
		JSON:             *jsonOnly,
	})
	if err != nil {
		var claimErr *goJWT.ClaimError
		if errors.As(err, &claimErr) {
			c.logger.Info("token rejected", zap.String("claim", claimErr.Claim), zap.Error(err))
		} else {
			c.logger.Info("token rejected", zap.Error(err))
		}
		return c.fail(err)
	}
	if len(allowed) == 0 {
		c.logger.Warn("no -alg given, accepted algorithms were derived from the key")
	}
	return c.writePayload(payload)
}

/*
====================================
DECODE
====================================
*/

func (c *command) decode(args []string) int {
	fs := c.flagSet("decode")
	jsonOnly := fs.Bool("json", false, "fail when the payload is not a JSON object")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	token, err := c.readToken(fs.Args())
	if err != nil {
		return c.fail(err)
	}

	dt, err := goJWT.DecodeComplete(token, goJWT.DecodeOptions{JSON: *jsonOnly})
	if err != nil {
		return c.fail(err)
	}
	header, err := dt.Header.MarshalJSON()
	if err != nil {
		return c.fail(err)
	}
	payload, err := payloadJSON(dt.Payload)
	if err != nil {
		return c.fail(err)
	}

	c.logger.Warn("decoded without verification")
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Header  json.RawMessage `json:"header"`
		Payload json.RawMessage `json:"payload"`
	}{header, payload}); err != nil {
		return c.fail(err)
	}
	return 0
}

/*
====================================
HELPERS
====================================
*/

func (c *command) writePayload(p goJWT.Payload) int {
	switch v := p.(type) {
	case *goJWT.Claims:
		data, err := v.MarshalJSON()
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintln(c.stdout, string(data))
	case goJWT.Opaque:
		_, _ = c.stdout.Write(v)
		fmt.Fprintln(c.stdout)
	}
	return 0
}

// payloadJSON renders claims as an object and opaque payloads as a string.
func payloadJSON(p goJWT.Payload) (json.RawMessage, error) {
	switch v := p.(type) {
	case *goJWT.Claims:
		return v.MarshalJSON()
	case goJWT.Opaque:
		return json.Marshal(string(v))
	default:
		return json.RawMessage("null"), nil
	}
}

func (c *command) readInput(arg string) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(c.stdin)
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(arg[1:])
	default:
		return []byte(arg), nil
	}
}

func (c *command) readToken(args []string) (string, error) {
	if len(args) > 1 {
		return "", errors.New("expected a single token")
	}
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}
	data, err := io.ReadAll(c.stdin)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.New("no token given")
	}
	return token, nil
}
