package authcore

import (
	"errors"
	"time"

	"github.com/inspecthub/authcore/token"
)

// Config carries every tunable of the engine. Configure it once during
// initialization and treat it as immutable afterwards; Build takes its
// own copy.
type Config struct {
	JWT         JWTConfig
	Password    PasswordConfig
	Lockout     LockoutConfig
	Directory   DirectoryConfig
	PolicyCache PolicyCacheConfig
	Throttle    ThrottleConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	Security    SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token issuance and validation.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures the argon2id hasher for LOCAL credentials.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig configures the tiered account lock. Thresholds must be
// strictly increasing; reaching PermanentThreshold locks the account
// until an administrative override.
type LockoutConfig struct {
	FirstThreshold     int
	FirstDuration      time.Duration
	SecondThreshold    int
	SecondDuration     time.Duration
	PermanentThreshold int
}

/*
====================================
DIRECTORY CONFIG
====================================
*/

// DirectoryConfig bounds calls to the corporate directory.
type DirectoryConfig struct {
	Timeout time.Duration
}

/*
====================================
POLICY CACHE CONFIG
====================================
*/

// PolicyCacheConfig configures the Redis read-through cache for the
// active login policy.
type PolicyCacheConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig configures the fixed-window login throttle. The
// identifier window always applies when enabled; the IP window
// additionally applies when EnableIPThrottle is set and a client IP is
// present on the context.
type ThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig configures the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment-wide hardening switches.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			FirstThreshold:     5,
			FirstDuration:      5 * time.Minute,
			SecondThreshold:    10,
			SecondDuration:     30 * time.Minute,
			PermanentThreshold: 15,
		},
		Directory: DirectoryConfig{
			Timeout: 5 * time.Second,
		},
		PolicyCache: PolicyCacheConfig{
			Enabled:     true,
			RedisPrefix: "authcore",
			TTL:         10 * time.Minute,
		},
		Throttle: ThrottleConfig{
			Enabled:          true,
			EnableIPThrottle: true,
			MaxAttempts:      20,
			Cooldown:         15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

// DefaultConfig returns the library defaults. Callers overwrite the
// fields they care about and pass the result to the builder.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. It is
// called by the builder; configurations that pass here can still fail
// later against runtime dependencies.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}

	if c.JWT.SigningMethod != string(token.MethodEd25519) && c.JWT.SigningMethod != string(token.MethodHS256) {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == string(token.MethodEd25519) && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == string(token.MethodEd25519) && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == string(token.MethodHS256) && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Lockout
	if c.Lockout.FirstThreshold <= 0 {
		return errors.New("Lockout FirstThreshold must be > 0")
	}
	if c.Lockout.SecondThreshold <= c.Lockout.FirstThreshold {
		return errors.New("Lockout SecondThreshold must exceed FirstThreshold")
	}
	if c.Lockout.PermanentThreshold <= c.Lockout.SecondThreshold {
		return errors.New("Lockout PermanentThreshold must exceed SecondThreshold")
	}
	if c.Lockout.FirstDuration <= 0 {
		return errors.New("Lockout FirstDuration must be > 0")
	}
	if c.Lockout.SecondDuration <= c.Lockout.FirstDuration {
		return errors.New("Lockout SecondDuration must exceed FirstDuration")
	}

	// Directory
	if c.Directory.Timeout <= 0 {
		return errors.New("Directory Timeout must be > 0")
	}

	// Policy cache
	if c.PolicyCache.Enabled && c.PolicyCache.TTL < 0 {
		return errors.New("PolicyCache TTL must be >= 0")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("Throttle MaxAttempts must be > 0 when throttle is enabled")
		}
		if c.Throttle.Cooldown <= 0 {
			return errors.New("Throttle Cooldown must be > 0 when throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.JWT.SigningMethod == string(token.MethodHS256) && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if !c.Throttle.Enabled {
			return errors.New("ProductionMode requires the login throttle")
		}
	}

	return nil
}
