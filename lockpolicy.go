package authcore

import (
	"time"

	"github.com/inspecthub/authcore/policy"
)

// permanentLockUntil is the sentinel timestamp for a permanent lock.
// Any LockedUntil in year 9999 or later means "never self-heals".
var permanentLockUntil = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// lockPolicy applies the tiered failure-lock rules. Counters and locks
// only ever advance for LOCAL accounts; directory and SSO lockout is the
// identity provider's concern.
type lockPolicy struct {
	firstThreshold     int
	firstDuration      time.Duration
	secondThreshold    int
	secondDuration     time.Duration
	permanentThreshold int
}

func newLockPolicy(cfg LockoutConfig) lockPolicy {
	return lockPolicy{
		firstThreshold:     cfg.FirstThreshold,
		firstDuration:      cfg.FirstDuration,
		secondThreshold:    cfg.SecondThreshold,
		secondDuration:     cfg.SecondDuration,
		permanentThreshold: cfg.PermanentThreshold,
	}
}

// canAttempt gates a login attempt against the account's state. A lock
// whose window has elapsed is healed on the returned copy (the caller
// persists it); the stored record is never mutated in place. Healing
// clears the lock but keeps the failure counter, so repeated lock
// cycles still escalate through the tiers. Only a verified login or an
// admin unlock resets the counter.
func (l lockPolicy) canAttempt(a Account, now time.Time) (Account, bool, error) {
	if !a.Active {
		return a, false, ErrAccountInactive
	}
	if !a.Locked {
		return a, true, nil
	}
	if a.LockedUntil.IsZero() || a.LockedUntil.After(now) {
		return a, false, ErrAccountLocked
	}

	healed := a
	healed.Locked = false
	healed.LockedUntil = time.Time{}
	healed.UpdatedAt = now
	return healed, true, nil
}

// onSuccess resets the failure bookkeeping after a verified login.
func (l lockPolicy) onSuccess(a Account, now time.Time) Account {
	a.FailedAttempts = 0
	a.Locked = false
	a.LockedUntil = time.Time{}
	a.LastLoginAt = now
	a.UpdatedAt = now
	return a
}

// onFailure advances the failure counter and applies the highest tier
// the new count reaches. Non-LOCAL accounts pass through unchanged.
func (l lockPolicy) onFailure(a Account, now time.Time) Account {
	if a.Method != policy.MethodLocal {
		return a
	}

	a.FailedAttempts++
	a.UpdatedAt = now

	switch {
	case a.FailedAttempts >= l.permanentThreshold:
		a.Locked = true
		a.LockedUntil = permanentLockUntil
	case a.FailedAttempts >= l.secondThreshold:
		a.Locked = true
		a.LockedUntil = now.Add(l.secondDuration)
	case a.FailedAttempts >= l.firstThreshold:
		a.Locked = true
		a.LockedUntil = now.Add(l.firstDuration)
	}
	return a
}

// lockState builds the admin-facing view of a's lock status.
func (l lockPolicy) lockState(a Account, now time.Time) LockState {
	st := LockState{
		Locked:         a.Locked,
		FailedAttempts: a.FailedAttempts,
		CanAdminUnlock: true,
	}
	if !a.Locked {
		return st
	}

	st.LockedUntil = a.LockedUntil
	if a.PermanentlyLocked() {
		st.Permanent = true
		st.CanAdminUnlock = false
		return st
	}
	if a.LockedUntil.After(now) {
		st.Remaining = a.LockedUntil.Sub(now)
	}
	return st
}
