package utils

import "context"

type ctxKey string

const (
	ownerIDKey    ctxKey = "owner_id"
	ownerEmailKey ctxKey = "owner_email"
)

// SetOwnerContext stores the authenticated caller identity on the context.
// Every downstream operation reads the owner explicitly from here; there is
// no other ambient auth state.
func SetOwnerContext(ctx context.Context, ownerID uint, email string) context.Context {
	ctx = context.WithValue(ctx, ownerIDKey, ownerID)
	return context.WithValue(ctx, ownerEmailKey, email)
}

func OwnerIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ownerIDKey).(uint)
	return id, ok
}

func OwnerEmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ownerEmailKey).(string); ok {
		return v
	}
	return ""
}
