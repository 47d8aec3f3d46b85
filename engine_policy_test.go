package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/inspecthub/authcore/policy"
)

func TestActivePolicy_DefaultWhenUnseeded(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	pol, err := f.engine.ActivePolicy(ctx)
	if err != nil {
		t.Fatalf("ActivePolicy failed: %v", err)
	}
	for _, m := range []policy.Method{policy.MethodSSO, policy.MethodAD, policy.MethodLocal} {
		if !pol.IsMethodEnabled(m) {
			t.Fatalf("default policy missing %s", m)
		}
	}

	primary, err := f.engine.PrimaryLoginMethod(ctx)
	if err != nil || primary != policy.MethodSSO {
		t.Fatalf("primary = %v, %v", primary, err)
	}

	// The fallback default is not persisted.
	if _, err := f.policies.LoadActive(ctx); !errors.Is(err, policy.ErrNotFound) {
		t.Fatal("default policy was persisted")
	}
}

func TestDisableLoginMethod(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	pol, err := f.engine.DisableLoginMethod(ctx, policy.MethodLocal)
	if err != nil {
		t.Fatalf("DisableLoginMethod failed: %v", err)
	}
	if pol.IsMethodEnabled(policy.MethodLocal) {
		t.Fatal("LOCAL still enabled")
	}

	methods, err := f.engine.AvailableMethods(ctx)
	if err != nil {
		t.Fatalf("AvailableMethods failed: %v", err)
	}
	for _, m := range methods {
		if m == policy.MethodLocal {
			t.Fatalf("LOCAL still listed: %v", methods)
		}
	}
}

func TestAvailableMethods_ListsReenabledMethod(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := f.engine.DisableLoginMethod(ctx, policy.MethodLocal); err != nil {
		t.Fatalf("DisableLoginMethod failed: %v", err)
	}
	pol, err := f.engine.EnableLoginMethod(ctx, policy.MethodLocal)
	if err != nil {
		t.Fatalf("EnableLoginMethod failed: %v", err)
	}

	// Re-enabling does not touch the priority list, but everything Login
	// accepts must still be offered.
	var inPriority bool
	for _, m := range pol.Priority() {
		if m == policy.MethodLocal {
			inPriority = true
		}
	}
	if inPriority {
		t.Fatalf("priority unexpectedly lists LOCAL: %v", pol.Priority())
	}

	methods, err := f.engine.AvailableMethods(ctx)
	if err != nil {
		t.Fatalf("AvailableMethods failed: %v", err)
	}
	var listed bool
	for _, m := range methods {
		if m == policy.MethodLocal {
			listed = true
		}
	}
	if !listed {
		t.Fatalf("LOCAL accepted by login but absent from AvailableMethods: %v", methods)
	}

	f.seedLocalAccount(t, "E1001", "correct-horse-battery")
	if _, err := f.engine.Login(ctx, localLogin("E1001", "correct-horse-battery")); err != nil {
		t.Fatalf("login with re-enabled method failed: %v", err)
	}
}

func TestDisableLoginMethod_LastMethodRefused(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := f.engine.UpdateEnabledMethods(ctx, []policy.Method{policy.MethodAD}); err != nil {
		t.Fatalf("UpdateEnabledMethods failed: %v", err)
	}

	if _, err := f.engine.DisableLoginMethod(ctx, policy.MethodAD); !errors.Is(err, policy.ErrLastMethodDisable) {
		t.Fatalf("expected ErrLastMethodDisable, got %v", err)
	}

	// Stored policy untouched by the refused change.
	pol, err := f.engine.ActivePolicy(ctx)
	if err != nil || !pol.IsMethodEnabled(policy.MethodAD) {
		t.Fatalf("policy = %+v, %v", pol, err)
	}
}

func TestUpdatePriority_Validation(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := f.engine.UpdateEnabledMethods(ctx, []policy.Method{policy.MethodAD, policy.MethodLocal}); err != nil {
		t.Fatalf("UpdateEnabledMethods failed: %v", err)
	}

	// Priority referencing a disabled method is rejected.
	_, err := f.engine.UpdatePriority(ctx, []policy.Method{policy.MethodSSO, policy.MethodAD})
	if !errors.Is(err, policy.ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}

	pol, err := f.engine.UpdatePriority(ctx, []policy.Method{policy.MethodLocal, policy.MethodAD})
	if err != nil {
		t.Fatalf("UpdatePriority failed: %v", err)
	}
	if got := pol.Priority(); got[0] != policy.MethodLocal || got[1] != policy.MethodAD {
		t.Fatalf("priority = %v", got)
	}

	primary, err := f.engine.PrimaryLoginMethod(ctx)
	if err != nil || primary != policy.MethodLocal {
		t.Fatalf("primary = %v, %v", primary, err)
	}
}

func TestPolicyChangeAuditsBeforeAndAfter(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := WithActor(context.Background(), "admin-7")

	// First change starts from the unpersisted default: no "before".
	if _, err := f.engine.DisableLoginMethod(ctx, policy.MethodLocal); err != nil {
		t.Fatalf("DisableLoginMethod failed: %v", err)
	}
	ev := f.waitAudit(t, "policy_updated")
	if ev.Actor != "admin-7" {
		t.Fatalf("actor = %q", ev.Actor)
	}
	if _, ok := ev.Metadata["before"]; ok {
		t.Fatalf("unexpected before on first change: %v", ev.Metadata)
	}
	if !strings.Contains(ev.Metadata["after"], `"SSO"`) {
		t.Fatalf("after record = %q", ev.Metadata["after"])
	}

	// Second change snapshots both sides.
	if _, err := f.engine.EnableLoginMethod(ctx, policy.MethodLocal); err != nil {
		t.Fatalf("EnableLoginMethod failed: %v", err)
	}
	ev = f.waitAudit(t, "policy_updated")
	if ev.Metadata["before"] == "" || ev.Metadata["after"] == "" {
		t.Fatalf("metadata = %v", ev.Metadata)
	}
	if ev.Metadata["before"] == ev.Metadata["after"] {
		t.Fatal("before and after identical")
	}
}

func TestPolicyChangeInvalidatesCache(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	// Warm the cache.
	if _, err := f.engine.UpdateEnabledMethods(ctx, []policy.Method{policy.MethodSSO, policy.MethodAD, policy.MethodLocal}); err != nil {
		t.Fatalf("seed policy failed: %v", err)
	}
	if _, err := f.engine.ActivePolicy(ctx); err != nil {
		t.Fatalf("ActivePolicy failed: %v", err)
	}
	cacheKey := "authcore:login_policy:active"
	if !f.redis.Exists(cacheKey) {
		t.Fatal("cache not populated")
	}

	// A policy change drops the cached copy.
	if _, err := f.engine.DisableLoginMethod(ctx, policy.MethodLocal); err != nil {
		t.Fatalf("DisableLoginMethod failed: %v", err)
	}
	if f.redis.Exists(cacheKey) {
		t.Fatal("cache not invalidated after change")
	}

	// The next read observes the new policy immediately.
	pol, err := f.engine.ActivePolicy(ctx)
	if err != nil {
		t.Fatalf("ActivePolicy failed: %v", err)
	}
	if pol.IsMethodEnabled(policy.MethodLocal) {
		t.Fatal("stale policy served after invalidation")
	}
}

func TestInvalidatePolicyCache(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := f.engine.UpdateEnabledMethods(ctx, []policy.Method{policy.MethodSSO, policy.MethodAD}); err != nil {
		t.Fatalf("seed policy failed: %v", err)
	}
	if _, err := f.engine.ActivePolicy(ctx); err != nil {
		t.Fatalf("ActivePolicy failed: %v", err)
	}

	if err := f.engine.InvalidatePolicyCache(ctx); err != nil {
		t.Fatalf("InvalidatePolicyCache failed: %v", err)
	}
	if f.redis.Exists("authcore:login_policy:active") {
		t.Fatal("cache entry survived invalidation")
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricPolicyCacheInvalidated]; got != 1 {
		t.Fatalf("invalidation counter = %d", got)
	}
}

func TestReplacePolicy(t *testing.T) {
	f := newTestEngine(t, nil)
	ctx := context.Background()

	pol, err := f.engine.ReplacePolicy(ctx, "sso-only", []policy.Method{policy.MethodSSO}, nil)
	if err != nil {
		t.Fatalf("ReplacePolicy failed: %v", err)
	}
	if pol.Name() != "sso-only" {
		t.Fatalf("name = %q", pol.Name())
	}
	if got := pol.Priority(); len(got) != 1 || got[0] != policy.MethodSSO {
		t.Fatalf("priority = %v", got)
	}

	// Logins honor the replacement at once.
	f.seedLocalAccount(t, "E1001", "correct-horse-battery")
	if _, err := f.engine.Login(ctx, localLogin("E1001", "correct-horse-battery")); !errors.Is(err, ErrMethodNotAllowed) {
		t.Fatalf("expected ErrMethodNotAllowed, got %v", err)
	}
}
