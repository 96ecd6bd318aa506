// Package auth carries the authenticated session through request contexts.
package auth

import "context"

type contextKey struct{}

// AuthContext identifies the signed-in parent and their family. Children
// never sign in; child mode is gated by PIN checks, not sessions.
type AuthContext struct {
	UserID    int64
	FamilyID  int64
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func FamilyID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.FamilyID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}
