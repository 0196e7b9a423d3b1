package middleware

import "context"

type userKey struct{}

// UserCtx is the authenticated session attached to a request.
type UserCtx struct {
	UserID    string
	SessionID string
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func FromCtx(ctx context.Context) (UserCtx, bool) {
	u, ok := ctx.Value(userKey{}).(UserCtx)
	return u, ok && u.UserID != ""
}

// UserID returns the authenticated user's id, or "" outside an authenticated route.
func UserID(ctx context.Context) string {
	u, _ := FromCtx(ctx)
	return u.UserID
}
