package authcore

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"
)

func validHS256Config() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate_Defaults(t *testing.T) {
	t.Run("hs256", func(t *testing.T) {
		cfg := validHS256Config()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	})

	t.Run("ed25519", func(t *testing.T) {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			t.Fatalf("key generation failed: %v", err)
		}
		cfg := DefaultConfig()
		cfg.JWT.PrivateKey = priv
		cfg.JWT.PublicKey = pub
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	})
}

func TestConfigValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }, "AccessTTL"},
		{"refresh not longer than access", func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL }, "RefreshTTL"},
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }, "signing method"},
		{"hs256 without key", func(c *Config) { c.JWT.PrivateKey = nil }, "hs256"},
		{"excessive leeway", func(c *Config) { c.JWT.Leeway = 3 * time.Minute }, "Leeway"},
		{"low argon2 memory", func(c *Config) { c.Password.Memory = 1024 }, "Memory"},
		{"zero argon2 time", func(c *Config) { c.Password.Time = 0 }, "Time"},
		{"short salt", func(c *Config) { c.Password.SaltLength = 8 }, "SaltLength"},
		{"zero first threshold", func(c *Config) { c.Lockout.FirstThreshold = 0 }, "FirstThreshold"},
		{"second below first", func(c *Config) { c.Lockout.SecondThreshold = 5 }, "SecondThreshold"},
		{"permanent below second", func(c *Config) { c.Lockout.PermanentThreshold = 10 }, "PermanentThreshold"},
		{"second duration below first", func(c *Config) { c.Lockout.SecondDuration = c.Lockout.FirstDuration }, "SecondDuration"},
		{"zero directory timeout", func(c *Config) { c.Directory.Timeout = 0 }, "Timeout"},
		{"throttle without attempts", func(c *Config) { c.Throttle.MaxAttempts = 0 }, "MaxAttempts"},
		{"throttle without cooldown", func(c *Config) { c.Throttle.Cooldown = 0 }, "Cooldown"},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, "BufferSize"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validHS256Config()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestConfigValidate_ProductionMode(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"long access ttl", func(c *Config) { c.JWT.AccessTTL = time.Hour; c.JWT.RefreshTTL = 48 * time.Hour }, "AccessTTL"},
		{"long refresh ttl", func(c *Config) { c.JWT.RefreshTTL = 90 * 24 * time.Hour }, "RefreshTTL"},
		{"short hs256 key", func(c *Config) { c.JWT.PrivateKey = []byte("0123456789abcdef") }, "hs256"},
		{"weak argon2 memory", func(c *Config) { c.Password.Memory = 32 * 1024 }, "Memory"},
		{"throttle disabled", func(c *Config) { c.Throttle.Enabled = false }, "throttle"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validHS256Config()
			cfg.Security.ProductionMode = true
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}

	t.Run("defaults pass", func(t *testing.T) {
		cfg := validHS256Config()
		cfg.Security.ProductionMode = true
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	})
}

func TestCloneConfig_DetachesKeys(t *testing.T) {
	cfg := validHS256Config()
	clone := cloneConfig(cfg)

	clone.JWT.PrivateKey[0] = 'X'
	if cfg.JWT.PrivateKey[0] == 'X' {
		t.Fatal("clone shares key material")
	}
}
