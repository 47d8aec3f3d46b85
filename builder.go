package authcore

import (
	"errors"

	"github.com/inspecthub/authcore/internal/rate"
	"github.com/inspecthub/authcore/password"
	"github.com/inspecthub/authcore/policy"
	"github.com/inspecthub/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A builder is single-use: Build wires
// the dependencies, validates the configuration, and hands back the
// engine.
type Builder struct {
	config Config
	redis  *redis.Client

	accountStore AccountStore
	policyStore  policy.Store
	directory    DirectoryAuthenticator
	sso          AssertionVerifier
	auditSink    AuditSink

	built bool
}

// New starts a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the policy cache and the
// login throttle. Required when either is enabled.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAccountStore supplies the account persistence. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accountStore = store
	return b
}

// WithPolicyStore supplies the login policy persistence. Without it the
// engine runs on an in-memory store.
func (b *Builder) WithPolicyStore(store policy.Store) *Builder {
	b.policyStore = store
	return b
}

// WithDirectory supplies the corporate directory used for AD logins.
func (b *Builder) WithDirectory(d DirectoryAuthenticator) *Builder {
	b.directory = d
	return b
}

// WithAssertionVerifier supplies the SSO assertion verifier.
func (b *Builder) WithAssertionVerifier(v AssertionVerifier) *Builder {
	b.sso = v
	return b
}

// WithAuditSink supplies the audit destination. Audit must also be
// enabled in the configuration to take effect.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the counter set.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles validation latency buckets.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accountStore == nil {
		return nil, errors.New("account store required")
	}
	if b.redis == nil && (cfg.PolicyCache.Enabled || cfg.Throttle.Enabled) {
		return nil, errors.New("redis client required for policy cache or throttle")
	}

	engine := &Engine{
		config:   cfg,
		accounts: b.accountStore,
		lock:     newLockPolicy(cfg.Lockout),
	}

	policyStore := b.policyStore
	if policyStore == nil {
		policyStore = policy.NewMemoryStore()
	}
	if cfg.PolicyCache.Enabled {
		cached := policy.NewCachedStore(policyStore, b.redis, cfg.PolicyCache.RedisPrefix, cfg.PolicyCache.TTL)
		engine.policies = cached
		engine.policyCache = cached
	} else {
		engine.policies = policyStore
	}

	if cfg.Throttle.Enabled {
		engine.throttle = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.Throttle.EnableIPThrottle,
			MaxAttempts:      cfg.Throttle.MaxAttempts,
			Cooldown:         cfg.Throttle.Cooldown,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine.verifier = &credentialVerifier{
		hasher:           hasher,
		directory:        b.directory,
		sso:              b.sso,
		directoryTimeout: cfg.Directory.Timeout,
		upgradeOnLogin:   cfg.Password.UpgradeOnLogin,
	}

	tm, err := token.NewManager(token.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: token.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	b.built = true

	return engine, nil
}
