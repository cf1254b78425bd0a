package goJWT

import (
	"fmt"
	"strings"
	"time"
)

// Config configures an Engine. Build validates it and resolves all keys once.
type Config struct {
	Signing    SigningConfig
	Verify     VerifyConfig
	Async      AsyncConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Revocation RevocationConfig
}

/*
====================================
SIGNING CONFIG
====================================
*/

// SigningConfig controls tokens issued by Engine.Sign.
type SigningConfig struct {
	Algorithm Algorithm
	// PrivateKey is the HMAC secret or PEM private key. Leave empty for a
	// verify-only engine.
	PrivateKey []byte
	// KeyID is written as kid and must be present in Verify.VerifyKeys when
	// that map is set.
	KeyID    string
	Issuer   string
	Audience []string
	// TTL sets exp relative to the signing time.
	TTL time.Duration
	// NotBefore delays nbf relative to the signing time. Zero omits nbf.
	NotBefore time.Duration
	// AutoJWTID adds a random UUID jti when the claims carry none. Required
	// for revocation.
	AutoJWTID bool
	Headers   map[string]any
}

/*
====================================
VERIFY CONFIG
====================================
*/

// VerifyConfig controls Engine.Verify.
type VerifyConfig struct {
	// Algorithms defaults to the signing algorithm.
	Algorithms []Algorithm
	// PublicKey is the default verification key. When empty it is derived
	// from Signing.PrivateKey.
	PublicKey []byte
	// VerifyKeys selects a key by the token kid header.
	VerifyKeys map[string][]byte
	// Issuer and Audience default to the signing values.
	Issuer   string
	Audience []string
	// Leeway is the clock tolerance for exp, nbf and MaxAge, at most 2m.
	Leeway time.Duration
	MaxAge time.Duration
}

/*
====================================
ASYNC / AUDIT / METRICS / REVOCATION
====================================
*/

// AsyncConfig bounds SignAsync and VerifyAsync.
type AsyncConfig struct {
	// MaxConcurrent is the number of async calls allowed to run at once.
	MaxConcurrent int64
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// RevocationConfig controls the jti deny-list lookup.
type RevocationConfig struct {
	Enabled bool
	// FailOpen accepts tokens when the backend errors; the failure is logged
	// and counted. The default rejects with ErrRevocationUnavailable.
	FailOpen bool
	// Timeout bounds each backend call. Zero uses the caller context only.
	Timeout time.Duration
}

// DefaultConfig returns the configuration used by New: EdDSA, 5 minute
// tokens, audit and revocation off, metrics on.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Signing: SigningConfig{
			Algorithm: EdDSA,
			TTL:       5 * time.Minute,
			AutoJWTID: true,
		},
		Verify: VerifyConfig{
			Leeway: 0,
		},
		Async: AsyncConfig{
			MaxConcurrent: 64,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Revocation: RevocationConfig{
			Enabled: false,
			Timeout: 50 * time.Millisecond,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Signing.PrivateKey = cloneBytes(cfg.Signing.PrivateKey)
	out.Signing.Audience = cloneStrings(cfg.Signing.Audience)
	if cfg.Signing.Headers != nil {
		out.Signing.Headers = make(map[string]any, len(cfg.Signing.Headers))
		for k, v := range cfg.Signing.Headers {
			out.Signing.Headers[k] = v
		}
	}
	out.Verify.Algorithms = append([]Algorithm(nil), cfg.Verify.Algorithms...)
	out.Verify.PublicKey = cloneBytes(cfg.Verify.PublicKey)
	out.Verify.Audience = cloneStrings(cfg.Verify.Audience)
	if cfg.Verify.VerifyKeys != nil {
		out.Verify.VerifyKeys = make(map[string][]byte, len(cfg.Verify.VerifyKeys))
		for kid, key := range cfg.Verify.VerifyKeys {
			out.Verify.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, wrapped in ErrInvalidConfig.
// Key material is checked by Build, not here.
func (c *Config) Validate() error {
	// Signing
	if !c.Signing.Algorithm.Valid() {
		return configError("Signing Algorithm is not supported")
	}
	if c.Signing.Algorithm == None {
		return configError("Signing Algorithm none is not allowed in an Engine")
	}
	if c.Signing.TTL <= 0 {
		return configError("Signing TTL must be > 0")
	}
	if c.Signing.NotBefore < 0 || c.Signing.NotBefore >= c.Signing.TTL {
		return configError("Signing NotBefore must be >= 0 and < TTL")
	}
	if strings.TrimSpace(c.Signing.KeyID) != c.Signing.KeyID {
		return configError("Signing KeyID must not have surrounding spaces")
	}
	if _, ok := c.Signing.Headers[HeaderAlgorithm]; ok {
		return configError("Signing Headers must not set alg")
	}

	// Verify
	for _, alg := range c.Verify.Algorithms {
		if !alg.Valid() {
			return configError("Verify Algorithms contains an unsupported algorithm")
		}
		if alg == None {
			return configError("Verify Algorithms must not contain none")
		}
	}
	if c.Verify.Leeway < 0 || c.Verify.Leeway > 2*time.Minute {
		return configError("Verify Leeway must be between 0 and 2m")
	}
	if c.Verify.MaxAge < 0 {
		return configError("Verify MaxAge must be >= 0")
	}
	for kid, key := range c.Verify.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return configError("Verify VerifyKeys contains an empty kid")
		}
		if len(key) == 0 {
			return configError(fmt.Sprintf("Verify VerifyKeys[%q] is empty", kid))
		}
	}
	if c.Signing.KeyID != "" && len(c.Verify.VerifyKeys) > 0 {
		if _, ok := c.Verify.VerifyKeys[c.Signing.KeyID]; !ok {
			return configError("Signing KeyID is not present in Verify VerifyKeys")
		}
	}
	if len(c.Signing.PrivateKey) == 0 && len(c.Verify.PublicKey) == 0 && len(c.Verify.VerifyKeys) == 0 {
		return configError("at least one of Signing PrivateKey, Verify PublicKey or Verify VerifyKeys is required")
	}

	// Async
	if c.Async.MaxConcurrent < 1 {
		return configError("Async MaxConcurrent must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit BufferSize must be > 0 when enabled")
	}

	// Revocation
	if c.Revocation.Timeout < 0 {
		return configError("Revocation Timeout must be >= 0")
	}
	if c.Revocation.Enabled && !c.Signing.AutoJWTID {
		return configError("Revocation requires Signing AutoJWTID")
	}

	return nil
}

func configError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
