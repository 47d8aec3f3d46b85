package authcore

import (
	"context"
	"sync"
	"time"

	"github.com/inspecthub/authcore/internal"
	"github.com/inspecthub/authcore/policy"
)

// PermanentlyLocked reports whether the account carries the permanent
// lock sentinel. Permanent locks never self-heal and cannot be cleared
// by an ordinary admin unlock.
func (a Account) PermanentlyLocked() bool {
	return a.Locked && !a.LockedUntil.IsZero() && a.LockedUntil.Year() >= 9999
}

// newProvisionedAccount builds the account record created on first
// successful AD or SSO login. The login method is fixed to the method
// that proved the identity.
func newProvisionedAccount(employeeID string, method policy.Method, id verifiedIdentity, now time.Time) Account {
	return Account{
		ID:          internal.NewID(),
		EmployeeID:  employeeID,
		Name:        id.DisplayName,
		Email:       id.Email,
		Method:      method,
		Roles:       cloneStrings(id.Roles),
		Active:      true,
		LastLoginAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MemoryAccountStore is an in-process [AccountStore] used in tests and
// examples. Safe for concurrent use.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryAccountStore creates an empty MemoryAccountStore.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]Account)}
}

// FindByEmployeeID returns the stored account or [ErrUserNotFound].
func (s *MemoryAccountStore) FindByEmployeeID(_ context.Context, employeeID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[employeeID]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return acct, nil
}

// Save stores acct keyed by employee id, assigning an id if empty.
func (s *MemoryAccountStore) Save(_ context.Context, acct Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = internal.NewID()
	}
	s.accounts[acct.EmployeeID] = acct
	return acct, nil
}

// Delete removes the account for employeeID, if present.
func (s *MemoryAccountStore) Delete(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, employeeID)
}

func cloneStrings(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
