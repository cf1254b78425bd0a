package goJWT

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSign   = "token_sign"
	auditEventVerify = "token_verify"
	auditEventRevoke = "token_revoke"
)

// AuditErrorCode is the stable failure code carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrMalformed            AuditErrorCode = "malformed"
	auditErrUnsupportedAlgorithm AuditErrorCode = "unsupported_algorithm"
	auditErrAlgorithmNotAllowed  AuditErrorCode = "algorithm_not_allowed"
	auditErrInvalidSignature     AuditErrorCode = "invalid_signature"
	auditErrInvalidKey           AuditErrorCode = "invalid_key"
	auditErrExpired              AuditErrorCode = "expired"
	auditErrNotActive            AuditErrorCode = "not_active"
	auditErrAudienceMismatch     AuditErrorCode = "audience_mismatch"
	auditErrIssuerMismatch       AuditErrorCode = "issuer_mismatch"
	auditErrSubjectMismatch      AuditErrorCode = "subject_mismatch"
	auditErrJWTIDMismatch        AuditErrorCode = "jti_mismatch"
	auditErrInvalidPayload       AuditErrorCode = "invalid_payload"
	auditErrInvalidHeader        AuditErrorCode = "invalid_header"
	auditErrInvalidTimeSpan      AuditErrorCode = "invalid_time_span"
	auditErrUnknownKeyID         AuditErrorCode = "unknown_key_id"
	auditErrRevoked              AuditErrorCode = "revoked"
	auditErrUnavailable          AuditErrorCode = "backend_unavailable"
	auditErrEngineClosed         AuditErrorCode = "engine_closed"
	auditErrCanceled             AuditErrorCode = "canceled"
	auditErrInternal             AuditErrorCode = "internal_error"
)

// auditFields are the token attributes copied into an event. Claim values
// other than these never reach the sink.
type auditFields struct {
	alg     string
	kid     string
	jti     string
	subject string
	issuer  string
}

func tokenAuditFields(t *DecodedToken) auditFields {
	if t == nil {
		return auditFields{}
	}
	f := auditFields{
		alg: t.Header.Alg(),
		kid: t.Header.KeyID(),
	}
	if claims, ok := t.Claims(); ok {
		f.jti, _ = claims.JWTID()
		f.subject, _ = claims.Subject()
		f.issuer, _ = claims.Issuer()
	}
	return f
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, err error, f auditFields) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Algorithm: f.alg,
		KeyID:     f.kid,
		TokenID:   f.jti,
		Subject:   f.subject,
		Issuer:    f.issuer,
		Success:   err == nil,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrRevocationUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrUnknownKeyID):
		return auditErrUnknownKeyID
	case errors.Is(err, ErrMalformedToken), errors.Is(err, ErrDecoding):
		return auditErrMalformed
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return auditErrUnsupportedAlgorithm
	case errors.Is(err, ErrAlgorithmNotAllowed):
		return auditErrAlgorithmNotAllowed
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrInvalidKeyType):
		return auditErrInvalidKey
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrTokenNotActive):
		return auditErrNotActive
	case errors.Is(err, ErrAudienceMismatch):
		return auditErrAudienceMismatch
	case errors.Is(err, ErrIssuerMismatch):
		return auditErrIssuerMismatch
	case errors.Is(err, ErrSubjectMismatch):
		return auditErrSubjectMismatch
	case errors.Is(err, ErrJWTIDMismatch):
		return auditErrJWTIDMismatch
	case errors.Is(err, ErrInvalidPayloadShape):
		return auditErrInvalidPayload
	case errors.Is(err, ErrInvalidHeader):
		return auditErrInvalidHeader
	case errors.Is(err, ErrInvalidTimeSpan):
		return auditErrInvalidTimeSpan
	case errors.Is(err, ErrEngineClosed):
		return auditErrEngineClosed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
