package auth

import (
	"context"

	"github.com/judyrop/storefront-api/models"
)

type contextKey struct{}

// Identity is the authenticated caller of a request.
type Identity struct {
	User   *models.User
	Method string
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity injected by RequireLogin, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil && id.User != nil
}
