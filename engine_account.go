package authcore

import (
	"context"
	"fmt"
	"time"
)

// AccountLockState returns the lock view of an account for admin UIs.
// A lock whose window has already elapsed is reported as not locked,
// matching what the next login attempt would observe.
func (e *Engine) AccountLockState(ctx context.Context, employeeID string) (LockState, error) {
	if e == nil || e.accounts == nil {
		return LockState{}, ErrEngineNotReady
	}

	acct, err := e.accounts.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return LockState{}, err
	}

	now := time.Now().UTC()
	if healed, ok, _ := e.lock.canAttempt(acct, now); ok {
		acct = healed
	}
	return e.lock.lockState(acct, now), nil
}

// UnlockAccount clears an account lock and resets the failure counter.
// Permanent locks require force; without it the call fails with
// [ErrAccountPermanentlyLocked] so an ordinary helpdesk flow cannot
// clear them by accident.
func (e *Engine) UnlockAccount(ctx context.Context, employeeID string, force bool) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	defer e.lockAccount(employeeID)()

	acct, err := e.accounts.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}

	if acct.PermanentlyLocked() && !force {
		return ErrAccountPermanentlyLocked
	}

	now := time.Now().UTC()
	acct.Locked = false
	acct.LockedUntil = time.Time{}
	acct.FailedAttempts = 0
	acct.UpdatedAt = now

	if _, err := e.accounts.Save(ctx, acct); err != nil {
		return fmt.Errorf("account save: %w", err)
	}

	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, employeeID, acct.Method, nil, nil)
	return nil
}

// DeactivateAccount marks an account inactive. Tokens already issued
// keep working until they expire; refresh is rejected immediately.
func (e *Engine) DeactivateAccount(ctx context.Context, employeeID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	defer e.lockAccount(employeeID)()

	acct, err := e.accounts.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	if !acct.Active {
		return nil
	}

	acct.Active = false
	acct.UpdatedAt = time.Now().UTC()
	if _, err := e.accounts.Save(ctx, acct); err != nil {
		return fmt.Errorf("account save: %w", err)
	}

	e.metricInc(MetricAccountDeactivated)
	e.emitAudit(ctx, auditEventAccountDeactivated, true, employeeID, acct.Method, nil, nil)
	return nil
}

// ActivateAccount re-enables a deactivated account. Lock state is left
// as it was: reactivation does not forgive failed attempts.
func (e *Engine) ActivateAccount(ctx context.Context, employeeID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}
	defer e.lockAccount(employeeID)()

	acct, err := e.accounts.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	if acct.Active {
		return nil
	}

	acct.Active = true
	acct.UpdatedAt = time.Now().UTC()
	if _, err := e.accounts.Save(ctx, acct); err != nil {
		return fmt.Errorf("account save: %w", err)
	}

	e.emitAudit(ctx, auditEventAccountActivated, true, employeeID, acct.Method, nil, nil)
	return nil
}
