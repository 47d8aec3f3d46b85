package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Refresh redeems a refresh token for a brand-new token pair. The
// account is re-resolved from the store so a lock, deactivation, or
// role change since issuance takes effect immediately; the old refresh
// token is not tracked and simply ages out.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.accounts == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.recordTokenFailure(err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, nil)
		return nil, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}

	// The lazy heal below rewrites the account record; serialize with
	// the other per-account read-modify-write paths.
	defer e.lockAccount(claims.Subject)()

	acct, err := e.accounts.FindByEmployeeID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, "", ErrRefreshInvalid, nil)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	now := time.Now().UTC()
	healed, ok, gateErr := e.lock.canAttempt(acct, now)
	if !ok {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, acct.EmployeeID, acct.Method, gateErr, nil)
		return nil, gateErr
	}
	if healed.Locked != acct.Locked {
		e.metricInc(MetricAccountLockHealed)
		if saved, err := e.accounts.Save(ctx, healed); err == nil {
			healed = saved
		} else {
			log.Print("authcore: lock heal persist failed")
		}
	}
	acct = healed

	access, err := e.tokens.IssueAccess(acct.EmployeeID, acct.ID, acct.Name, acct.Roles)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := e.tokens.IssueRefresh(acct.EmployeeID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, acct.EmployeeID, acct.Method, nil, nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.tokens.AccessTTL().Seconds()),
	}, nil
}
