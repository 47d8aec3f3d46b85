package authcore

import (
	"hash/fnv"
	"sync"

	"github.com/inspecthub/authcore/internal/rate"
	"github.com/inspecthub/authcore/policy"
	"github.com/inspecthub/authcore/token"
)

// Engine is the authentication core: policy-gated login over the three
// mechanisms, tiered account lockout, stateless token issuance, and
// policy administration. Build one through [New] and share it; every
// method is safe for concurrent use.
type Engine struct {
	config      Config
	accounts    AccountStore
	policies    policy.Store
	policyCache *policy.CachedStore
	verifier    *credentialVerifier
	tokens      *token.Manager
	lock        lockPolicy
	throttle    *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
	accountMu   accountMutex
}

// accountMutex serializes read-modify-write cycles on one account, so
// concurrent failed attempts against the same employee never lose
// counter increments. Striped by employee id hash; a stripe collision
// only costs extra serialization, never correctness.
type accountMutex struct {
	stripes [64]sync.Mutex
}

func (m *accountMutex) forKey(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.stripes[h.Sum32()%uint32(len(m.stripes))]
}

// lockAccount takes the stripe for employeeID and returns its unlock.
func (e *Engine) lockAccount(employeeID string) func() {
	mu := e.accountMu.forKey(employeeID)
	mu.Lock()
	return mu.Unlock
}

// Close stops background workers. The audit buffer is drained before
// Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
