// Package policy models the platform login policy: which authentication
// methods (SSO, AD, LOCAL) are enabled and in what priority order.
//
// [Policy] is an immutable value; updates derive a new copy and re-validate
// the invariants. [Store] abstracts persistence, and [CachedStore] layers a
// Redis read-through cache with write-through invalidation on top of any
// Store.
package policy
