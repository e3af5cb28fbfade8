package identity

import "context"

// User is the authenticated principal attached to a request.
type User struct {
	ID    string
	Email string
	Name  string
	Role  string
}

type ctxKey string

const userKey ctxKey = "dali.user"

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext extracts the authenticated user if present.
func UserFromContext(ctx context.Context) (User, bool) {
	val := ctx.Value(userKey)
	if val == nil {
		return User{}, false
	}
	u, ok := val.(User)
	return u, ok && u.ID != ""
}
