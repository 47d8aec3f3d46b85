package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/inspecthub/authcore/policy"
	"github.com/inspecthub/authcore/token"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventAccountLocked      = "account_locked"
	auditEventAccountUnlocked    = "account_unlocked"
	auditEventAccountActivated   = "account_activated"
	auditEventAccountDeactivated = "account_deactivated"
	auditEventAccountProvisioned = "account_provisioned"
	auditEventPolicyUpdated      = "policy_updated"
)

// AuditReason is the stable reason code attached to failure events.
// Codes are part of the audit contract: downstream SIEM rules match on
// them, so they never change once shipped.
type AuditReason string

const (
	ReasonUserNotFound        AuditReason = "USER_NOT_FOUND"
	ReasonInvalidPassword     AuditReason = "INVALID_PASSWORD"
	ReasonInvalidADPassword   AuditReason = "INVALID_AD_PASSWORD"
	ReasonInvalidSSOAssertion AuditReason = "INVALID_SSO_ASSERTION"
	ReasonADConnectionError   AuditReason = "AD_CONNECTION_ERROR"
	ReasonAccountInactive     AuditReason = "ACCOUNT_INACTIVE"
	ReasonAccountLocked       AuditReason = "ACCOUNT_LOCKED"
	ReasonMethodNotAllowed    AuditReason = "METHOD_NOT_ALLOWED"
	ReasonRateLimited         AuditReason = "RATE_LIMITED"
	ReasonTokenInvalid        AuditReason = "TOKEN_INVALID"
	ReasonPolicyUnavailable   AuditReason = "POLICY_UNAVAILABLE"
	ReasonInternalError       AuditReason = "INTERNAL_ERROR"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	employeeID string,
	method policy.Method,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		EmployeeID: employeeID,
		Method:     method,
		IP:         ClientIPFromContext(ctx),
		Actor:      actorOrSystem(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if reason := auditReason(err, method); reason != "" {
		event.Reason = string(reason)
	}

	e.audit.Emit(ctx, event)
}

func auditReason(err error, method policy.Method) AuditReason {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUserNotFound):
		return ReasonUserNotFound
	case errors.Is(err, ErrInvalidCredentials):
		switch method {
		case policy.MethodAD:
			return ReasonInvalidADPassword
		case policy.MethodSSO:
			return ReasonInvalidSSOAssertion
		default:
			return ReasonInvalidPassword
		}
	case errors.Is(err, ErrDirectoryUnreachable):
		return ReasonADConnectionError
	case errors.Is(err, ErrAccountInactive):
		return ReasonAccountInactive
	case errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrAccountPermanentlyLocked):
		return ReasonAccountLocked
	case errors.Is(err, ErrMethodNotAllowed):
		return ReasonMethodNotAllowed
	case errors.Is(err, ErrLoginRateLimited):
		return ReasonRateLimited
	case errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrSignature),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrWrongType):
		return ReasonTokenInvalid
	case errors.Is(err, ErrPolicyUnavailable):
		return ReasonPolicyUnavailable
	default:
		return ReasonInternalError
	}
}
