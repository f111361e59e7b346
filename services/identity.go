package services

import "context"

// Identity - аутентифицированный пользователь текущего запроса
type Identity struct {
	UserID    uint
	SessionID string
}

type identityKey struct{}

// WithIdentity кладет пользователя в контекст запроса
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext достает пользователя из контекста запроса
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != 0
}
