package goJWT

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	// LintInfo is a posture note that is fine for many deployments.
	LintInfo LintSeverity = iota
	// LintWarn is a setting that weakens verification.
	LintWarn
	// LintHigh is a setting that is almost always a mistake.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding of Config.Lint.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	filtered := r.BySeverity(min)
	if len(filtered) == 0 {
		return nil
	}
	errs := make([]error, 0, len(filtered))
	for _, w := range filtered {
		errs = append(errs, fmt.Errorf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.Join(errs...)
}

const (
	lintMinHMACSecret = 32
	lintMaxLeeway     = time.Minute
	lintMaxTTL        = time.Hour
)

// Lint reports settings that pass Validate but weaken the deployment. It
// never fails; use AsError to turn findings into a startup check.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.Signing.Algorithm.Family() == FamilyHMAC {
		add("signing_hmac", LintInfo, "%s shares one secret between issuer and verifiers", c.Signing.Algorithm)
		if n := len(c.Signing.PrivateKey); n > 0 && n < lintMinHMACSecret {
			add("hmac_secret_short", LintHigh, "HMAC secret is %d bytes, use at least %d", n, lintMinHMACSecret)
		}
	}

	families := make(map[Family]struct{}, 2)
	for _, alg := range c.Verify.Algorithms {
		families[alg.Family()] = struct{}{}
	}
	if len(families) > 1 {
		names := make([]string, 0, len(c.Verify.Algorithms))
		for _, alg := range c.Verify.Algorithms {
			names = append(names, alg.String())
		}
		add("verify_mixed_families", LintWarn, "Verify Algorithms mixes key families: %s", strings.Join(names, ","))
	}

	if c.Verify.Leeway > lintMaxLeeway {
		add("leeway_large", LintWarn, "Verify Leeway %s exceeds %s", c.Verify.Leeway, lintMaxLeeway)
	}
	if c.Signing.TTL > lintMaxTTL {
		add("ttl_long", LintWarn, "Signing TTL %s exceeds %s", c.Signing.TTL, lintMaxTTL)
	}
	if c.Verify.Issuer == "" && c.Signing.Issuer == "" {
		add("issuer_unchecked", LintInfo, "tokens are accepted from any issuer")
	}
	if len(c.Verify.Audience) == 0 && len(c.Signing.Audience) == 0 {
		add("audience_unchecked", LintInfo, "tokens are accepted for any audience")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "sign and verify calls are not audited")
	}
	if c.Revocation.Enabled && c.Revocation.FailOpen {
		add("revocation_fail_open", LintWarn, "revoked tokens are accepted while the revocation backend is down")
	}

	return ws
}
