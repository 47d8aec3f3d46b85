package internaldefs

import (
	authcore "github.com/inspecthub/authcore"
)

// CounterDef binds one engine counter to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is the shared counter catalogue used by every exporter.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricLoginMethodNotAllowed, Name: "authcore_login_method_not_allowed_total", Help: "Login attempts rejected by the active policy."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh operations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Timed account locks applied."},
	{ID: authcore.MetricAccountPermanentLock, Name: "authcore_account_permanent_lock_total", Help: "Permanent account locks applied."},
	{ID: authcore.MetricAccountUnlocked, Name: "authcore_account_unlocked_total", Help: "Administrative account unlocks."},
	{ID: authcore.MetricAccountDeactivated, Name: "authcore_account_deactivated_total", Help: "Account deactivations."},
	{ID: authcore.MetricAccountProvisioned, Name: "authcore_account_provisioned_total", Help: "Accounts auto-provisioned on first directory or SSO login."},
	{ID: authcore.MetricAccountLockHealed, Name: "authcore_account_lock_healed_total", Help: "Elapsed locks healed lazily on a login attempt."},
	{ID: authcore.MetricDirectoryUnreachable, Name: "authcore_directory_unreachable_total", Help: "Login attempts aborted because the directory was unreachable."},
	{ID: authcore.MetricTokenExpired, Name: "authcore_token_expired_total", Help: "Token validations rejected as expired."},
	{ID: authcore.MetricTokenMalformed, Name: "authcore_token_malformed_total", Help: "Token validations rejected as malformed."},
	{ID: authcore.MetricTokenSignatureInvalid, Name: "authcore_token_signature_invalid_total", Help: "Token validations rejected for bad signature."},
	{ID: authcore.MetricPolicyUpdated, Name: "authcore_policy_updated_total", Help: "Login policy updates."},
	{ID: authcore.MetricPolicyCacheInvalidated, Name: "authcore_policy_cache_invalidated_total", Help: "Explicit policy cache invalidations."},
}

// HistogramDefs is the shared histogram catalogue.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "ValidateAccess latency histogram."},
}

// HistogramBounds are the upper bounds of the latency buckets in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the bounds as metric-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
