// Package rate provides the Redis-backed fixed-window counters behind
// the login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes:
//   - la:  — login per-employee
//   - lip: — login per-IP
//
// # What this package must NOT do
//
//   - Implement lockout policy (that lives in the root package and is
//     persisted on the account, not in Redis).
//   - Be imported outside the authcore module.
package rate
