package gateway

import (
	"context"

	"github.com/Zipties/toolarr/internal/authserver"
)

// Identity is the authenticated caller of a gateway request. It replaces
// the bearer token once the token has been validated.
type Identity struct {
	// ClientID is empty for the legacy pre-shared key.
	ClientID string
	Scopes   authserver.Scopes
	Legacy   bool
}

// HasScope reports whether the caller was granted scope.
func (i Identity) HasScope(scope string) bool {
	return i.Scopes.Contains(scope)
}

// Subject names the caller for logs.
func (i Identity) Subject() string {
	if i.Legacy {
		return "legacy-api-key"
	}
	return i.ClientID
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by the gateway.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
