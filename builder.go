package goJWT

import (
	"context"
	"errors"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/goJWT/internal/audit"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Revoker is the jti deny-list consulted by Engine.Verify and written by
// Engine.Revoke. revocation.RedisStore is the bundled implementation.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Builder assembles an Engine. A Builder is single use.
type Builder struct {
	config Config

	revoker   Revoker
	auditSink AuditSink
	logger    *zap.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRevoker sets the revocation backend and enables revocation checks.
func (b *Builder) WithRevoker(r Revoker) *Builder {
	b.revoker = r
	b.config.Revocation.Enabled = r != nil
	return b
}

// WithAuditSink sets the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
		if b.config.Audit.BufferSize <= 0 {
			b.config.Audit.BufferSize = defaultConfig().Audit.BufferSize
		}
	}
	return b
}

// WithLogger sets the engine logger. The default is zap.NewNop().
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for every sign and verify call.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the sign and verify latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, parses every key and starts the audit
// dispatcher when enabled.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Revocation.Enabled && b.revoker == nil {
		return nil, configError("Revocation requires a Revoker")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:  cfg,
		revoker: b.revoker,
		logger:  logger,
		now:     b.now,
		sem:     semaphore.NewWeighted(cfg.Async.MaxConcurrent),
	}

	// -------- KEYS --------
	if len(cfg.Signing.PrivateKey) > 0 {
		km, err := ParseSigningKey(cfg.Signing.Algorithm, cfg.Signing.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("signing key: %w", err)
		}
		engine.signKey = km
	}

	switch {
	case len(cfg.Verify.PublicKey) > 0:
		km, err := ParseVerificationKey(cfg.Verify.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("verification key: %w", err)
		}
		engine.verifyKey = km
	case engine.signKey != nil:
		km, err := engine.signKey.publicHalf()
		if err != nil {
			return nil, fmt.Errorf("verification key: %w", err)
		}
		engine.verifyKey = km
	}

	if len(cfg.Verify.VerifyKeys) > 0 {
		engine.verifyKeys = make(map[string]*KeyMaterial, len(cfg.Verify.VerifyKeys))
		for kid, key := range cfg.Verify.VerifyKeys {
			km, err := ParseVerificationKey(key)
			if err != nil {
				return nil, fmt.Errorf("verify key %q: %w", kid, err)
			}
			engine.verifyKeys[kid] = km
		}
	}

	// -------- VERIFY DEFAULTS --------
	if len(cfg.Verify.Algorithms) == 0 {
		engine.config.Verify.Algorithms = []Algorithm{cfg.Signing.Algorithm}
	}
	if cfg.Verify.Issuer == "" {
		engine.config.Verify.Issuer = cfg.Signing.Issuer
	}
	if len(cfg.Verify.Audience) == 0 {
		engine.config.Verify.Audience = cloneStrings(cfg.Signing.Audience)
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
