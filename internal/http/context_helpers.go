package httpx

import (
	"context"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across
// packages. Centralized in this file so all handlers/middleware use the same
// key.
type identityKey struct{}

// SetIdentityInContext returns a child context carrying the resolved identity.
// If identity is nil, the original ctx is returned unchanged.
func SetIdentityInContext(ctx context.Context, identity *domainauth.ResolvedIdentity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the resolved identity from context and a
// boolean indicating presence. Only the guard puts identities here, so a
// present identity has already been verified and resolved for this request.
func IdentityFromContext(ctx context.Context) (*domainauth.ResolvedIdentity, bool) {
	if identity, ok := ctx.Value(identityKey{}).(*domainauth.ResolvedIdentity); ok && identity != nil {
		return identity, true
	}
	return nil, false
}
