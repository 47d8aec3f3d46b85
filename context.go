package authcore

import "context"

type contextKey int

const (
	clientIPKey contextKey = iota
	actorKey
)

// WithClientIP attaches the caller's network address to ctx for audit
// records and the per-IP login throttle.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the address set by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// WithActor attaches the administrative actor performing a policy or
// account operation to ctx. Without it, changes are attributed to
// "SYSTEM".
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor set by [WithActor], or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

func actorOrSystem(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != "" {
		return actor
	}
	return "SYSTEM"
}
