// Package authcore is the authentication core of the compliance
// platform: policy-gated login over SSO, corporate directory, and local
// credentials, tiered account lockout, and stateless JWT token pairs.
//
// The package is designed for concurrent server workloads: Engine
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder],
// [Config], the store interfaces, and value types (LoginResult,
// AuthResult, LockState, MetricsSnapshot). Policy modelling lives in
// the policy sub-package, token handling in token, password hashing in
// password; Redis throttle plumbing stays under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store internals in its public API.
//   - Speak HTTP: status mapping is provided ([StatusForError]) but
//     handlers belong to the caller (or the middleware sub-package).
//   - Import any sub-package that re-imports authcore (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path. It is purely computational: no store
// lookups, no Redis round-trips, no audit emission. Login and Refresh
// are allowed store and Redis round-trips per call.
package authcore
