package authcore

import (
	"context"
	"time"

	"github.com/inspecthub/authcore/policy"
)

// Account is the authentication view of a platform user. The login
// method is fixed at creation time; lock bookkeeping (Locked,
// LockedUntil, FailedAttempts) only ever changes for LOCAL accounts.
type Account struct {
	ID             string
	EmployeeID     string
	Name           string
	Email          string
	Method         policy.Method
	PasswordHash   string
	Roles          []string
	Active         bool
	Locked         bool
	LockedUntil    time.Time
	FailedAttempts int
	LastLoginAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccountStore is the interface callers implement to integrate authcore
// with their user database. FindByEmployeeID must return
// [ErrUserNotFound] when no account exists; Save persists the full
// record and returns the stored copy.
//
// The engine serializes its own find-modify-save cycles per employee,
// so a single-process deployment needs no locking in the store. When
// several engine instances share one database, Save must be made
// conditional (version column, compare-and-set, or a row lock around
// the cycle) or concurrent failure counters can still be lost across
// processes.
type AccountStore interface {
	FindByEmployeeID(ctx context.Context, employeeID string) (Account, error)
	Save(ctx context.Context, acct Account) (Account, error)
}

// DirectoryStatus classifies the outcome of a directory bind attempt.
type DirectoryStatus int

const (
	// DirectoryOK means the directory accepted the credentials.
	DirectoryOK DirectoryStatus = iota
	// DirectoryBadCredential means the directory rejected the credentials.
	DirectoryBadCredential
	// DirectoryUnreachable means the directory could not be reached.
	DirectoryUnreachable
)

// DirectoryResult is returned by [DirectoryAuthenticator.Authenticate].
// DisplayName, Email, and Roles are only meaningful when Status is
// [DirectoryOK]; they seed auto-provisioned accounts.
type DirectoryResult struct {
	Status      DirectoryStatus
	DisplayName string
	Email       string
	Roles       []string
}

// DirectoryAuthenticator binds against the corporate directory. LDAP
// wire details stay behind this interface; transport errors may be
// reported either through the returned error or as
// [DirectoryUnreachable].
type DirectoryAuthenticator interface {
	Authenticate(ctx context.Context, employeeID, password string) (DirectoryResult, error)
}

// SSOClaims are the verified identity claims extracted from an SSO
// assertion.
type SSOClaims struct {
	Subject     string
	DisplayName string
	Email       string
	Roles       []string
}

// AssertionVerifier validates an SSO assertion and returns the claims it
// carries. Any error means the assertion is invalid.
type AssertionVerifier interface {
	Verify(ctx context.Context, assertion string) (SSOClaims, error)
}

// LoginRequest is the input for [Engine.Login]. Credential is the
// password for LOCAL and AD, or the raw assertion for SSO.
type LoginRequest struct {
	EmployeeID string
	Credential string
	Method     policy.Method
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// AuthResult is returned by [Engine.ValidateAccess]. It contains the
// authenticated identity as recorded in the access token.
type AuthResult struct {
	EmployeeID string
	UserID     string
	Name       string
	Roles      []string
}

// LockState is a read-only view of an account's lock status, suitable
// for admin UIs.
type LockState struct {
	Locked         bool
	Permanent      bool
	LockedUntil    time.Time
	Remaining      time.Duration
	FailedAttempts int
	CanAdminUnlock bool
}
