// Package session carries the authenticated identity through a request
// context. There is no process-wide "current user".
package session

import (
	"context"
	"errors"

	"donorbridge/pkg/types"
)

var ErrNoIdentity = errors.New("no authenticated identity in context")

type contextKey struct{}

func WithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(types.Identity)
	if !ok || identity.ID == "" {
		return types.Identity{}, false
	}
	return identity, true
}

// Provider resolves the current user from the request context populated by
// the auth middleware.
type Provider struct{}

func (Provider) CurrentUser(ctx context.Context) (*types.Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, ErrNoIdentity
	}
	return &identity, nil
}
