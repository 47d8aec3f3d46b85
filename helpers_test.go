package authcore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/inspecthub/authcore/password"
	"github.com/inspecthub/authcore/policy"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "authcore-test"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Throttle.MaxAttempts = 100
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	return cfg
}

type stubDirectory struct {
	result DirectoryResult
	err    error
	calls  int
}

func (d *stubDirectory) Authenticate(_ context.Context, _, _ string) (DirectoryResult, error) {
	d.calls++
	return d.result, d.err
}

type stubSSO struct {
	claims SSOClaims
	err    error
	calls  int
}

func (s *stubSSO) Verify(_ context.Context, _ string) (SSOClaims, error) {
	s.calls++
	return s.claims, s.err
}

type engineFixture struct {
	engine    *Engine
	accounts  *MemoryAccountStore
	policies  *policy.MemoryStore
	redis     *miniredis.Miniredis
	sink      *ChannelSink
	directory *stubDirectory
	sso       *stubSSO
}

func newTestEngine(t *testing.T, mutate func(*Config)) *engineFixture {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &engineFixture{
		accounts:  NewMemoryAccountStore(),
		policies:  policy.NewMemoryStore(),
		redis:     mr,
		sink:      NewChannelSink(64),
		directory: &stubDirectory{},
		sso:       &stubSSO{},
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(f.accounts).
		WithPolicyStore(f.policies).
		WithDirectory(f.directory).
		WithAssertionVerifier(f.sso).
		WithAuditSink(f.sink).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	f.engine = engine
	return f
}

func (f *engineFixture) seedLocalAccount(t *testing.T, employeeID, pwd string) Account {
	t.Helper()

	hasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	hash, err := hasher.Hash(pwd)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	acct, err := f.accounts.Save(context.Background(), Account{
		EmployeeID:   employeeID,
		Name:         "Test User",
		Email:        employeeID + "@example.com",
		Method:       policy.MethodLocal,
		PasswordHash: hash,
		Roles:        []string{"auditor"},
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return acct
}

func (f *engineFixture) mustAccount(t *testing.T, employeeID string) Account {
	t.Helper()

	acct, err := f.accounts.FindByEmployeeID(context.Background(), employeeID)
	if err != nil {
		t.Fatalf("account lookup failed: %v", err)
	}
	return acct
}

// waitAudit blocks until an event of the given type arrives, failing
// the test after a short timeout. Events of other types are discarded.
func (f *engineFixture) waitAudit(t *testing.T, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-f.sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit event %q", eventType)
			return AuditEvent{}
		}
	}
}
