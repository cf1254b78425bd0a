package goJWT

import (
	"fmt"
	"math"
	"time"
)

// validateClaims runs the claim checks on a *Claims payload. Opaque payloads
// carry no claims and pass.
func validateClaims(p Payload, opts VerifyOptions, now time.Time) error {
	claims, ok := p.(*Claims)
	if !ok {
		return nil
	}

	clockNow := nowSeconds(now)
	tolerance := math.Floor(opts.ClockTolerance.Seconds())

	nbf, hasNBF, err := claims.numeric(ClaimNotBefore)
	if err != nil {
		return err
	}
	if hasNBF && !opts.IgnoreNotBefore && clockNow < nbf-tolerance {
		return &ClaimError{Claim: ClaimNotBefore, At: secondsToTime(nbf), Err: ErrTokenNotActive}
	}

	exp, hasExp, err := claims.numeric(ClaimExpiresAt)
	if err != nil {
		return err
	}
	if hasExp && !opts.IgnoreExpiration && clockNow >= exp+tolerance {
		return &ClaimError{Claim: ClaimExpiresAt, At: secondsToTime(exp), Err: ErrTokenExpired}
	}

	if len(opts.Audience) > 0 {
		if err := checkAudience(claims, opts.Audience); err != nil {
			return err
		}
	}
	if opts.Issuer != "" {
		if err := checkString(claims, ClaimIssuer, opts.Issuer, ErrIssuerMismatch); err != nil {
			return err
		}
	}
	if opts.Subject != "" {
		if err := checkString(claims, ClaimSubject, opts.Subject, ErrSubjectMismatch); err != nil {
			return err
		}
	}
	if opts.JWTID != "" {
		if err := checkString(claims, ClaimJWTID, opts.JWTID, ErrJWTIDMismatch); err != nil {
			return err
		}
	}

	iat, hasIAT, err := claims.numeric(ClaimIssuedAt)
	if err != nil {
		return err
	}
	if opts.MaxAge > 0 {
		if !hasIAT {
			return fmt.Errorf("%w: iat required when max age is set", ErrMalformedToken)
		}
		maxAge := math.Floor(opts.MaxAge.Seconds())
		if clockNow >= iat+maxAge+tolerance {
			return &ClaimError{
				Claim:    ClaimIssuedAt,
				Expected: opts.MaxAge,
				At:       secondsToTime(iat + maxAge),
				Err:      ErrTokenExpired,
			}
		}
	}
	return nil
}

func checkAudience(claims *Claims, expected []string) error {
	aud, ok, err := claims.Audience()
	if err != nil {
		return err
	}
	if ok {
		for _, want := range expected {
			for _, got := range aud {
				if got == want {
					return nil
				}
			}
		}
	}
	return &ClaimError{Claim: ClaimAudience, Expected: expected, Actual: actualValue(aud, ok), Err: ErrAudienceMismatch}
}

func checkString(claims *Claims, name, expected string, sentinel error) error {
	raw, present := claims.Get(name)
	got, isString := claims.stringClaim(name)
	if isString && got == expected {
		return nil
	}
	return &ClaimError{Claim: name, Expected: expected, Actual: actualValue(raw, present), Err: sentinel}
}

func actualValue(v any, present bool) any {
	if !present {
		return "<missing>"
	}
	return v
}

func secondsToTime(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
