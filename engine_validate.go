package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inspecthub/authcore/token"
)

// ValidateAccess verifies an access token and returns the identity it
// carries. This is the request hot path: it is purely computational (no
// store or Redis access) and emits no audit events.
func (e *Engine) ValidateAccess(_ context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.tokens.ParseAccess(accessToken)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		e.recordTokenFailure(err)
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return &AuthResult{
		EmployeeID: claims.Subject,
		UserID:     claims.UserID,
		Name:       claims.Name,
		Roles:      claims.Roles,
	}, nil
}

func (e *Engine) recordTokenFailure(err error) {
	switch {
	case errors.Is(err, token.ErrExpired):
		e.metricInc(MetricTokenExpired)
	case errors.Is(err, token.ErrSignature):
		e.metricInc(MetricTokenSignatureInvalid)
	default:
		e.metricInc(MetricTokenMalformed)
	}
}
