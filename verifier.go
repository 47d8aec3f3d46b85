package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/inspecthub/authcore/password"
	"github.com/inspecthub/authcore/policy"
)

// verifiedIdentity is what a successful credential check proved about
// the caller. For AD and SSO it carries the directory-of-record view
// used to provision or refresh the account; for LOCAL only RehashedHash
// may be set, when the stored hash is due for a parameter upgrade.
type verifiedIdentity struct {
	DisplayName  string
	Email        string
	Roles        []string
	RehashedHash string
}

// credentialVerifier dispatches a login attempt to the mechanism the
// request names. Exactly one of the three branches runs per attempt.
type credentialVerifier struct {
	hasher           *password.Hasher
	directory        DirectoryAuthenticator
	sso              AssertionVerifier
	directoryTimeout time.Duration
	upgradeOnLogin   bool
}

func (v *credentialVerifier) verify(ctx context.Context, method policy.Method, acct Account, credential string) (verifiedIdentity, error) {
	switch method {
	case policy.MethodLocal:
		return v.verifyLocal(credential, acct)
	case policy.MethodAD:
		return v.verifyDirectory(ctx, acct.EmployeeID, credential)
	case policy.MethodSSO:
		return v.verifySSO(ctx, acct.EmployeeID, credential)
	default:
		return verifiedIdentity{}, fmt.Errorf("%w: %q", policy.ErrUnknownMethod, method)
	}
}

func (v *credentialVerifier) verifyLocal(credential string, acct Account) (verifiedIdentity, error) {
	// An account without a hash (provisioned for AD/SSO, or never set up)
	// can never pass a LOCAL check.
	if acct.PasswordHash == "" {
		return verifiedIdentity{}, ErrInvalidCredentials
	}

	ok, err := v.hasher.Verify(credential, acct.PasswordHash)
	if err != nil {
		return verifiedIdentity{}, fmt.Errorf("password verify: %w", err)
	}
	if !ok {
		return verifiedIdentity{}, ErrInvalidCredentials
	}

	out := verifiedIdentity{
		DisplayName: acct.Name,
		Email:       acct.Email,
		Roles:       acct.Roles,
	}
	if v.upgradeOnLogin {
		if upgrade, err := v.hasher.NeedsUpgrade(acct.PasswordHash); err == nil && upgrade {
			if rehashed, err := v.hasher.Hash(credential); err == nil {
				out.RehashedHash = rehashed
			}
		}
	}
	return out, nil
}

func (v *credentialVerifier) verifyDirectory(ctx context.Context, employeeID, credential string) (verifiedIdentity, error) {
	if v.directory == nil {
		return verifiedIdentity{}, ErrEngineNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, v.directoryTimeout)
	defer cancel()

	res, err := v.directory.Authenticate(ctx, employeeID, credential)
	if err != nil {
		return verifiedIdentity{}, fmt.Errorf("%w: %v", ErrDirectoryUnreachable, err)
	}

	switch res.Status {
	case DirectoryOK:
		return verifiedIdentity{
			DisplayName: res.DisplayName,
			Email:       res.Email,
			Roles:       res.Roles,
		}, nil
	case DirectoryBadCredential:
		return verifiedIdentity{}, ErrInvalidCredentials
	default:
		return verifiedIdentity{}, ErrDirectoryUnreachable
	}
}

func (v *credentialVerifier) verifySSO(ctx context.Context, employeeID, assertion string) (verifiedIdentity, error) {
	if v.sso == nil {
		return verifiedIdentity{}, ErrEngineNotReady
	}

	claims, err := v.sso.Verify(ctx, assertion)
	if err != nil {
		return verifiedIdentity{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	// The assertion must prove the identity the caller claims, not just
	// any identity.
	if claims.Subject != employeeID {
		return verifiedIdentity{}, ErrInvalidCredentials
	}

	return verifiedIdentity{
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
		Roles:       claims.Roles,
	}, nil
}
