package authcore

import (
	"errors"
	"net/http"

	"github.com/inspecthub/authcore/policy"
)

var (
	// ErrUnauthorized is returned for any access-token validation failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned when the presented credential does
	// not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when no account exists for the employee id.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountInactive is returned for deactivated accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountLocked is returned while a lock is in force.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountPermanentlyLocked rejects ordinary unlock of a permanent lock.
	ErrAccountPermanentlyLocked = errors.New("account permanently locked, administrative override required")
	// ErrMethodNotAllowed is returned when the requested login method is
	// not enabled by the active policy.
	ErrMethodNotAllowed = errors.New("login method not allowed")
	// ErrDirectoryUnreachable is returned when the corporate directory
	// cannot be reached. The failure is environmental: lock counters are
	// never advanced for it.
	ErrDirectoryUnreachable = errors.New("directory unreachable")
	// ErrLoginRateLimited is returned by the login throttle.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshInvalid is returned for any refresh-token failure.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrPolicyUnavailable is returned when the active policy cannot be loaded.
	ErrPolicyUnavailable = errors.New("login policy unavailable")
	// ErrEngineNotReady is an exported guard for use before Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrorCode maps an engine failure to its stable machine-readable code.
// The codes are part of the external contract and never change meaning.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "AUTH_001"
	case errors.Is(err, ErrInvalidCredentials):
		return "AUTH_002"
	case errors.Is(err, ErrAccountInactive):
		return "AUTH_003"
	case errors.Is(err, ErrAccountLocked), errors.Is(err, ErrAccountPermanentlyLocked):
		return "AUTH_004"
	case errors.Is(err, ErrMethodNotAllowed):
		return "AUTH_005"
	case errors.Is(err, ErrDirectoryUnreachable):
		return "AD_CONNECTION_ERROR"
	case errors.Is(err, ErrUnauthorized):
		return "AUTH_401"
	case errors.Is(err, ErrRefreshInvalid):
		return "AUTH_REFRESH"
	case errors.Is(err, ErrLoginRateLimited):
		return "AUTH_THROTTLED"
	case errors.Is(err, policy.ErrNoMethodEnabled),
		errors.Is(err, policy.ErrInvalidPriority),
		errors.Is(err, policy.ErrLastMethodDisable),
		errors.Is(err, policy.ErrUnknownMethod):
		return "POLICY_INVALID"
	case errors.Is(err, ErrPolicyUnavailable):
		return "POLICY_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// StatusForError maps an engine failure to the HTTP status the platform
// API layer should respond with.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrRefreshInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountInactive),
		errors.Is(err, ErrMethodNotAllowed),
		errors.Is(err, ErrAccountPermanentlyLocked):
		return http.StatusForbidden
	case errors.Is(err, ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, ErrDirectoryUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, ErrLoginRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, policy.ErrNoMethodEnabled),
		errors.Is(err, policy.ErrInvalidPriority),
		errors.Is(err, policy.ErrLastMethodDisable),
		errors.Is(err, policy.ErrUnknownMethod):
		return http.StatusBadRequest
	case errors.Is(err, policy.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPolicyUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the failure is environmental and the same
// request may succeed on retry without any state change.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDirectoryUnreachable)
}
