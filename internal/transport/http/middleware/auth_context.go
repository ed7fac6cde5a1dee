package middleware

import "context"

type ctxKey string

const ctxPrincipal ctxKey = "principal"

// Principal is the caller identity recovered from a verified access token.
type Principal struct {
	UserID     int64
	Email      string
	Roles      []string
	IsUserAuth bool
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok && p.UserID > 0
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}
