package goJWT

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	internalaudit "github.com/MrEthical07/goJWT/internal/audit"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Engine issues and verifies tokens with keys and policy fixed at Build
// time. It is safe for concurrent use.
type Engine struct {
	config     Config
	signKey    *KeyMaterial
	verifyKey  *KeyMaterial
	verifyKeys map[string]*KeyMaterial
	revoker    Revoker
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *zap.Logger
	sem        *semaphore.Weighted
	now        func() time.Time
	closed     atomic.Bool
}

// Close stops the audit dispatcher after delivering buffered events. Later
// calls fail with ErrEngineClosed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) clock() time.Time {
	return clock(e.now)
}

// Sign issues a token for claims with the configured algorithm, key, kid,
// iss, aud and TTL. claims is not modified. A claim already present in
// claims that the engine would also set fails with ErrInvalidPayloadShape.
func (e *Engine) Sign(ctx context.Context, claims *Claims) (string, error) {
	if e.closed.Load() {
		return "", ErrEngineClosed
	}
	start := time.Now()

	token, opts, err := e.sign(claims)
	e.observe(MetricSignLatency, start)
	if err != nil {
		e.metricInc(MetricSignFailure)
	} else {
		e.metricInc(MetricSignSuccess)
	}
	e.emitAudit(ctx, auditEventSign, err, auditFields{
		alg:     e.config.Signing.Algorithm.String(),
		kid:     e.config.Signing.KeyID,
		jti:     opts.JWTID,
		subject: subjectOf(claims),
		issuer:  e.config.Signing.Issuer,
	})
	return token, err
}

func (e *Engine) sign(claims *Claims) (string, SignOptions, error) {
	if e.signKey == nil {
		return "", SignOptions{}, fmt.Errorf("%w: engine has no signing key", ErrInvalidKeyType)
	}
	if claims == nil {
		claims = NewClaims()
	}

	now := e.clock()
	cfg := e.config.Signing
	opts := SignOptions{
		Algorithm: cfg.Algorithm,
		ExpiresIn: AtUnix(now.Add(cfg.TTL).Unix()),
		Audience:  cfg.Audience,
		Issuer:    cfg.Issuer,
		Headers:   cfg.Headers,
		KeyID:     cfg.KeyID,
		Now:       func() time.Time { return now },
	}
	if cfg.NotBefore > 0 {
		opts.NotBefore = AtUnix(now.Add(cfg.NotBefore).Unix())
	}
	if cfg.AutoJWTID && !claims.Has(ClaimJWTID) {
		opts.JWTID = uuid.NewString()
	}

	token, err := SignWithKey(claims, e.signKey, opts)
	return token, opts, err
}

// Verify runs every verification stage with the configured policy, then
// consults the revocation list when one is configured.
func (e *Engine) Verify(ctx context.Context, token string) (*DecodedToken, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	start := time.Now()

	t, err := e.verify(ctx, token)
	e.observe(MetricVerifyLatency, start)
	e.metricInc(verifyMetric(err))

	fields := auditFields{}
	if t != nil {
		fields = tokenAuditFields(t)
	}
	e.emitAudit(ctx, auditEventVerify, err, fields)

	if err != nil {
		return nil, err
	}
	return t, nil
}

func (e *Engine) verify(ctx context.Context, token string) (*DecodedToken, error) {
	now := e.clock()

	t, err := decodeToken(token, false)
	if err != nil {
		return nil, err
	}
	key, err := e.keyFor(t.Header)
	if err != nil {
		return t, err
	}
	if err := checkSignature(t, key, e.config.Verify.Algorithms); err != nil {
		return t, err
	}
	if err := validateClaims(t.Payload, e.verifyOptions(), now); err != nil {
		return t, err
	}
	if err := e.checkRevoked(ctx, t); err != nil {
		return t, err
	}
	return t, nil
}

func (e *Engine) verifyOptions() VerifyOptions {
	cfg := e.config.Verify
	return VerifyOptions{
		Algorithms:     cfg.Algorithms,
		Audience:       cfg.Audience,
		Issuer:         cfg.Issuer,
		ClockTolerance: cfg.Leeway,
		MaxAge:         cfg.MaxAge,
	}
}

// keyFor selects the verification key: by kid when VerifyKeys is set,
// otherwise the default key.
func (e *Engine) keyFor(h Header) (*KeyMaterial, error) {
	kid := h.KeyID()
	if len(e.verifyKeys) > 0 {
		if kid == "" {
			if e.verifyKey != nil {
				return e.verifyKey, nil
			}
			return nil, fmt.Errorf("%w: token has no kid", ErrUnknownKeyID)
		}
		km, ok := e.verifyKeys[kid]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKeyID, kid)
		}
		return km, nil
	}
	if e.verifyKey == nil {
		return nil, fmt.Errorf("%w: engine has no verification key", ErrUnknownKeyID)
	}
	return e.verifyKey, nil
}

func (e *Engine) checkRevoked(ctx context.Context, t *DecodedToken) error {
	if e.revoker == nil || !e.config.Revocation.Enabled {
		return nil
	}
	claims, ok := t.Claims()
	if !ok {
		return nil
	}
	jti, ok := claims.JWTID()
	if !ok || jti == "" {
		return nil
	}

	ctx, cancel := e.revocationContext(ctx)
	defer cancel()

	revoked, err := e.revoker.IsRevoked(ctx, jti)
	if err != nil {
		if e.config.Revocation.FailOpen {
			e.metricInc(MetricRevocationUnavailable)
			e.logger.Warn("revocation check failed, accepting token",
				zap.String("jti", jti),
				zap.Error(err))
			return nil
		}
		e.logger.Error("revocation check failed", zap.String("jti", jti), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if revoked {
		return &ClaimError{Claim: ClaimJWTID, Actual: jti, Err: ErrTokenRevoked}
	}
	return nil
}

func (e *Engine) revocationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.config.Revocation.Timeout > 0 {
		return context.WithTimeout(ctx, e.config.Revocation.Timeout)
	}
	return context.WithCancel(ctx)
}

// Revoke verifies token and puts its jti on the revocation list until the
// token would have expired anyway. Revoking an already revoked token
// succeeds.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if e.revoker == nil {
		return fmt.Errorf("%w: no revoker configured", ErrRevocationUnavailable)
	}

	t, err := e.verify(ctx, token)
	if err != nil && !errors.Is(err, ErrTokenRevoked) {
		e.emitAudit(ctx, auditEventRevoke, err, auditFields{})
		return err
	}

	err = e.revoke(ctx, t)
	if err == nil {
		e.metricInc(MetricRevokeSuccess)
	}
	e.emitAudit(ctx, auditEventRevoke, err, tokenAuditFields(t))
	return err
}

func (e *Engine) revoke(ctx context.Context, t *DecodedToken) error {
	claims, ok := t.Claims()
	if !ok {
		return fmt.Errorf("%w: token has no claims", ErrInvalidPayloadShape)
	}
	jti, ok := claims.JWTID()
	if !ok || jti == "" {
		return fmt.Errorf("%w: token has no jti", ErrInvalidPayloadShape)
	}
	until, ok, err := claims.ExpiresAt()
	if err != nil {
		return err
	}
	if !ok {
		until = e.clock().Add(e.config.Signing.TTL)
	}
	until = until.Add(e.config.Verify.Leeway)

	ctx, cancel := e.revocationContext(ctx)
	defer cancel()
	if err := e.revoker.Revoke(ctx, jti, until); err != nil {
		e.logger.Error("revoke failed", zap.String("jti", jti), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	return nil
}

// SignAsync runs Sign on a worker bounded by Async.MaxConcurrent. The
// channel delivers one Result and closes. A context done while waiting for a
// slot, or before the result is ready, yields ctx.Err().
func (e *Engine) SignAsync(ctx context.Context, claims *Claims) <-chan Result[string] {
	return runAsync(ctx, func() (string, error) {
		if err := e.acquire(ctx); err != nil {
			return "", err
		}
		defer e.sem.Release(1)
		return e.Sign(ctx, claims)
	})
}

// VerifyAsync runs Verify on a worker bounded by Async.MaxConcurrent.
func (e *Engine) VerifyAsync(ctx context.Context, token string) <-chan Result[*DecodedToken] {
	return runAsync(ctx, func() (*DecodedToken, error) {
		if err := e.acquire(ctx); err != nil {
			return nil, err
		}
		defer e.sem.Release(1)
		return e.Verify(ctx, token)
	})
}

func (e *Engine) acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		e.metricInc(MetricAsyncRejected)
		e.logger.Debug("async call abandoned before a worker slot was free", zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(id, time.Since(start))
	}
}

func subjectOf(claims *Claims) string {
	sub, _ := claims.Subject()
	return sub
}
