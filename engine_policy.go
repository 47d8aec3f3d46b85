package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inspecthub/authcore/internal"
	"github.com/inspecthub/authcore/policy"
)

// ActivePolicy returns the login policy currently in force. Before any
// policy has been saved this is the all-enabled default.
func (e *Engine) ActivePolicy(ctx context.Context) (policy.Policy, error) {
	if e == nil {
		return policy.Policy{}, ErrEngineNotReady
	}
	return e.loadActivePolicy(ctx)
}

// AvailableMethods returns every enabled method in presentation order,
// the shape login screens render method buttons from. Methods enabled
// but absent from the priority list are appended in canonical order, so
// nothing [Engine.Login] would accept is hidden from users.
func (e *Engine) AvailableMethods(ctx context.Context) ([]policy.Method, error) {
	pol, err := e.ActivePolicy(ctx)
	if err != nil {
		return nil, err
	}
	return pol.EnabledByPriority(), nil
}

// PrimaryLoginMethod returns the method a login screen should preselect.
func (e *Engine) PrimaryLoginMethod(ctx context.Context) (policy.Method, error) {
	pol, err := e.ActivePolicy(ctx)
	if err != nil {
		return "", err
	}
	return pol.PrimaryMethod()
}

// ReplacePolicy installs a wholly new active policy. An empty priority
// derives the canonical order over the enabled set.
func (e *Engine) ReplacePolicy(ctx context.Context, name string, enabled, priority []policy.Method) (policy.Policy, error) {
	if e == nil {
		return policy.Policy{}, ErrEngineNotReady
	}

	return e.changePolicy(ctx, func(_ policy.Policy, actor string, now time.Time) (policy.Policy, error) {
		return policy.New(internal.NewID(), name, enabled, priority, actor, now)
	})
}

// UpdateEnabledMethods replaces the enabled set of the active policy,
// preserving the relative priority of the methods that stay enabled.
func (e *Engine) UpdateEnabledMethods(ctx context.Context, enabled []policy.Method) (policy.Policy, error) {
	if e == nil {
		return policy.Policy{}, ErrEngineNotReady
	}

	return e.changePolicy(ctx, func(cur policy.Policy, actor string, now time.Time) (policy.Policy, error) {
		return cur.WithEnabledMethods(enabled, actor, now)
	})
}

// UpdatePriority replaces the priority order of the active policy.
func (e *Engine) UpdatePriority(ctx context.Context, priority []policy.Method) (policy.Policy, error) {
	if e == nil {
		return policy.Policy{}, ErrEngineNotReady
	}

	return e.changePolicy(ctx, func(cur policy.Policy, actor string, now time.Time) (policy.Policy, error) {
		return cur.WithPriority(priority, actor, now)
	})
}

// EnableLoginMethod adds one method to the enabled set. Enabling a
// method that is already enabled is a no-op that still re-saves, so the
// audit trail records the attempt.
func (e *Engine) EnableLoginMethod(ctx context.Context, m policy.Method) (policy.Policy, error) {
	if e == nil {
		return policy.Policy{}, ErrEngineNotReady
	}

	return e.changePolicy(ctx, func(cur policy.Policy, actor string, now time.Time) (policy.Policy, error) {
		return cur.WithMethodEnabled(m, actor, now)
	})
}

// DisableLoginMethod removes one method from the enabled set. Disabling
// the last enabled method fails with [policy.ErrLastMethodDisable] and
// leaves the stored policy untouched.
func (e *Engine) DisableLoginMethod(ctx context.Context, m policy.Method) (policy.Policy, error) {
	if e == nil {
		return policy.Policy{}, ErrEngineNotReady
	}

	return e.changePolicy(ctx, func(cur policy.Policy, actor string, now time.Time) (policy.Policy, error) {
		return cur.WithMethodDisabled(m, actor, now)
	})
}

// InvalidatePolicyCache drops the cached copy of the active policy.
// Only needed when the policy store is written from outside this engine.
func (e *Engine) InvalidatePolicyCache(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.policyCache == nil {
		return nil
	}
	if err := e.policyCache.Invalidate(ctx); err != nil {
		return err
	}
	e.metricInc(MetricPolicyCacheInvalidated)
	return nil
}

// changePolicy is the shared load-derive-save-audit path for every
// policy mutation. The audit event carries the full before and after
// records so the change is reconstructible without store history.
func (e *Engine) changePolicy(
	ctx context.Context,
	derive func(cur policy.Policy, actor string, now time.Time) (policy.Policy, error),
) (policy.Policy, error) {
	if e.policies == nil {
		return policy.Policy{}, ErrEngineNotReady
	}

	now := time.Now().UTC()
	actor := actorOrSystem(ctx)

	cur, err := e.policies.LoadActive(ctx)
	hadBefore := err == nil
	if err != nil {
		if !errors.Is(err, policy.ErrNotFound) {
			return policy.Policy{}, fmt.Errorf("%w: %v", ErrPolicyUnavailable, err)
		}
		cur = policy.Default(internal.NewID(), now)
	}

	next, err := derive(cur, actor, now)
	if err != nil {
		return policy.Policy{}, err
	}

	if err := e.policies.Save(ctx, next); err != nil {
		return policy.Policy{}, fmt.Errorf("policy save: %w", err)
	}

	e.metricInc(MetricPolicyUpdated)
	e.emitAudit(ctx, auditEventPolicyUpdated, true, "", "", nil, func() map[string]string {
		md := map[string]string{
			"after": policyJSON(next),
		}
		if hadBefore {
			md["before"] = policyJSON(cur)
		}
		return md
	})

	return next, nil
}

func policyJSON(p policy.Policy) string {
	data, err := json.Marshal(p.Record())
	if err != nil {
		return ""
	}
	return string(data)
}
