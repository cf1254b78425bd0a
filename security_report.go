package goJWT

import (
	"sort"
	"time"
)

// SecurityReport summarises the verification posture of a built Engine.
// It never includes key material.
type SecurityReport struct {
	SigningAlgorithm    string
	SigningFamily       string
	VerifyAlgorithms    []string
	KeyIDs              []string
	TTL                 time.Duration
	Leeway              time.Duration
	MaxAge              time.Duration
	IssuerChecked       bool
	AudienceChecked     bool
	CanSign             bool
	RevocationEnabled   bool
	RevocationFailOpen  bool
	AuditEnabled        bool
	MetricsEnabled      bool
	AsyncMaxConcurrency int64
}

// SecurityReport returns the effective settings after Build defaults.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	algs := make([]string, 0, len(e.config.Verify.Algorithms))
	for _, alg := range e.config.Verify.Algorithms {
		algs = append(algs, alg.String())
	}
	kids := make([]string, 0, len(e.verifyKeys))
	for kid := range e.verifyKeys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	return SecurityReport{
		SigningAlgorithm:    e.config.Signing.Algorithm.String(),
		SigningFamily:       e.config.Signing.Algorithm.Family().String(),
		VerifyAlgorithms:    algs,
		KeyIDs:              kids,
		TTL:                 e.config.Signing.TTL,
		Leeway:              e.config.Verify.Leeway,
		MaxAge:              e.config.Verify.MaxAge,
		IssuerChecked:       e.config.Verify.Issuer != "",
		AudienceChecked:     len(e.config.Verify.Audience) > 0,
		CanSign:             e.signKey.CanSign(),
		RevocationEnabled:   e.revoker != nil && e.config.Revocation.Enabled,
		RevocationFailOpen:  e.config.Revocation.FailOpen,
		AuditEnabled:        e.config.Audit.Enabled,
		MetricsEnabled:      e.metrics.Enabled(),
		AsyncMaxConcurrency: e.config.Async.MaxConcurrent,
	}
}
