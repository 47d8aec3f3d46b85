package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/inspecthub/authcore/internal/rate"
	"github.com/inspecthub/authcore/policy"
)

// Login runs the full authentication pipeline for one attempt: policy
// gate, throttle, lock gate, credential verification, then token
// issuance. The gates run strictly in that order; a request for a
// disabled method is rejected before any credential is examined and
// without touching the account.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.accounts == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", policy.ErrUnknownMethod, req.Method)
	}
	if req.EmployeeID == "" || req.Credential == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	if err := e.checkThrottle(ctx, req); err != nil {
		return nil, err
	}

	pol, err := e.loadActivePolicy(ctx)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, req.EmployeeID, req.Method, err, nil)
		return nil, err
	}
	if !pol.IsMethodEnabled(req.Method) {
		e.metricInc(MetricLoginMethodNotAllowed)
		e.emitAudit(ctx, auditEventLoginFailure, false, req.EmployeeID, req.Method, ErrMethodNotAllowed, nil)
		return nil, ErrMethodNotAllowed
	}

	// The rest of the pipeline is a read-modify-write on one account
	// record (heal, failure counter, lock transition). Serialize it per
	// employee so concurrent attempts never lose counter increments.
	defer e.lockAccount(req.EmployeeID)()

	acct, err := e.accounts.FindByEmployeeID(ctx, req.EmployeeID)
	switch {
	case err == nil:
		return e.loginExisting(ctx, req, acct)
	case errors.Is(err, ErrUserNotFound):
		if req.Method == policy.MethodLocal {
			e.recordLoginFailure(ctx, req, ErrUserNotFound)
			return nil, ErrUserNotFound
		}
		// AD and SSO identities live in the directory of record: verify
		// there first, then provision the account on success.
		return e.loginProvision(ctx, req)
	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, req.EmployeeID, req.Method, err, nil)
		return nil, fmt.Errorf("account lookup: %w", err)
	}
}

func (e *Engine) loginExisting(ctx context.Context, req LoginRequest, acct Account) (*LoginResult, error) {
	if acct.Method != req.Method {
		e.metricInc(MetricLoginMethodNotAllowed)
		e.emitAudit(ctx, auditEventLoginFailure, false, req.EmployeeID, req.Method, ErrMethodNotAllowed, nil)
		return nil, ErrMethodNotAllowed
	}

	now := time.Now().UTC()
	healed, ok, gateErr := e.lock.canAttempt(acct, now)
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, req.EmployeeID, req.Method, gateErr, nil)
		return nil, gateErr
	}
	if healed.Locked != acct.Locked {
		// An elapsed lock heals lazily on the next attempt. Persisting the
		// healed record is best-effort; the attempt proceeds either way.
		e.metricInc(MetricAccountLockHealed)
		if saved, err := e.accounts.Save(ctx, healed); err == nil {
			healed = saved
		} else {
			log.Print("authcore: lock heal persist failed")
		}
	}
	acct = healed

	identity, err := e.verifier.verify(ctx, req.Method, acct, req.Credential)
	if err != nil {
		return nil, e.loginVerifyFailed(ctx, req, acct, err, now)
	}

	acct = e.applyIdentity(acct, req.Method, identity)
	acct = e.lock.onSuccess(acct, now)
	acct, err = e.accounts.Save(ctx, acct)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("account save: %w", err)
	}

	return e.issueLoginResult(ctx, req, acct)
}

func (e *Engine) loginProvision(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	now := time.Now().UTC()
	probe := Account{EmployeeID: req.EmployeeID, Method: req.Method, Active: true}

	identity, err := e.verifier.verify(ctx, req.Method, probe, req.Credential)
	if err != nil {
		return nil, e.loginVerifyFailed(ctx, req, probe, err, now)
	}

	acct := newProvisionedAccount(req.EmployeeID, req.Method, identity, now)
	acct, err = e.accounts.Save(ctx, acct)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("account provision: %w", err)
	}

	e.metricInc(MetricAccountProvisioned)
	e.emitAudit(ctx, auditEventAccountProvisioned, true, req.EmployeeID, req.Method, nil, nil)

	return e.issueLoginResult(ctx, req, acct)
}

// loginVerifyFailed classifies a verifier failure and applies its side
// effects. Directory outages are environmental: no counter moves and no
// throttle hit is recorded, so the user can retry once the directory is
// back.
func (e *Engine) loginVerifyFailed(ctx context.Context, req LoginRequest, acct Account, verr error, now time.Time) error {
	if errors.Is(verr, ErrDirectoryUnreachable) {
		e.metricInc(MetricDirectoryUnreachable)
		e.emitAudit(ctx, auditEventLoginFailure, false, req.EmployeeID, req.Method, verr, nil)
		return verr
	}
	if !errors.Is(verr, ErrInvalidCredentials) {
		e.metricInc(MetricLoginFailure)
		return verr
	}

	if acct.ID != "" {
		wasLocked := acct.Locked
		acct = e.lock.onFailure(acct, now)
		if saved, err := e.accounts.Save(ctx, acct); err == nil {
			acct = saved
		} else {
			log.Print("authcore: failure counter persist failed")
		}
		if acct.Locked && !wasLocked {
			if acct.PermanentlyLocked() {
				e.metricInc(MetricAccountPermanentLock)
			} else {
				e.metricInc(MetricAccountLocked)
			}
			e.emitAudit(ctx, auditEventAccountLocked, false, req.EmployeeID, req.Method, ErrAccountLocked, func() map[string]string {
				return map[string]string{
					"failed_attempts": strconv.Itoa(acct.FailedAttempts),
					"locked_until":    acct.LockedUntil.Format(time.RFC3339),
					"permanent":       strconv.FormatBool(acct.PermanentlyLocked()),
				}
			})
		}
	}

	e.recordLoginFailure(ctx, req, verr)
	return ErrInvalidCredentials
}

func (e *Engine) recordLoginFailure(ctx context.Context, req LoginRequest, cause error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, req.EmployeeID, req.Method, cause, nil)

	if e.throttle == nil {
		return
	}
	if err := e.throttle.IncrementLogin(ctx, req.EmployeeID, ClientIPFromContext(ctx)); err != nil &&
		!errors.Is(err, rate.ErrRateLimited) {
		log.Print("authcore: login throttle increment failed")
	}
}

func (e *Engine) checkThrottle(ctx context.Context, req LoginRequest) error {
	if e.throttle == nil {
		return nil
	}

	err := e.throttle.CheckLogin(ctx, req.EmployeeID, ClientIPFromContext(ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, req.EmployeeID, req.Method, ErrLoginRateLimited, nil)
		return ErrLoginRateLimited
	}
	// Redis down: the persistent lock still protects accounts, so the
	// throttle fails open.
	log.Print("authcore: login throttle check failed")
	return nil
}

func (e *Engine) issueLoginResult(ctx context.Context, req LoginRequest, acct Account) (*LoginResult, error) {
	access, err := e.tokens.IssueAccess(acct.EmployeeID, acct.ID, acct.Name, acct.Roles)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := e.tokens.IssueRefresh(acct.EmployeeID)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if e.throttle != nil {
		if err := e.throttle.ResetLogin(ctx, acct.EmployeeID, ClientIPFromContext(ctx)); err != nil {
			log.Print("authcore: login throttle reset failed")
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.EmployeeID, req.Method, nil, nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.tokens.AccessTTL().Seconds()),
	}, nil
}

// applyIdentity folds the verified identity back into the account. AD
// and SSO refresh the directory-owned fields on every login; LOCAL only
// picks up a rehashed password when an upgrade is due.
func (e *Engine) applyIdentity(acct Account, method policy.Method, identity verifiedIdentity) Account {
	switch method {
	case policy.MethodLocal:
		if identity.RehashedHash != "" {
			acct.PasswordHash = identity.RehashedHash
		}
	default:
		if identity.DisplayName != "" {
			acct.Name = identity.DisplayName
		}
		if identity.Email != "" {
			acct.Email = identity.Email
		}
		if len(identity.Roles) > 0 {
			acct.Roles = cloneStrings(identity.Roles)
		}
	}
	return acct
}

// loadActivePolicy resolves the policy in force. A missing policy falls
// back to the all-enabled default without persisting it; any other load
// failure is surfaced as [ErrPolicyUnavailable].
func (e *Engine) loadActivePolicy(ctx context.Context) (policy.Policy, error) {
	if e.policies == nil {
		return policy.Default("", time.Now().UTC()), nil
	}

	pol, err := e.policies.LoadActive(ctx)
	if err == nil {
		return pol, nil
	}
	if errors.Is(err, policy.ErrNotFound) {
		return policy.Default("", time.Now().UTC()), nil
	}
	return policy.Policy{}, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
}
