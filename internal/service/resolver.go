package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edbridge/portal-api/internal/data"
	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/ports"
)

// Resolver reconciles a verified claim with internally stored user state.
// The internal record, not the token, is the source of truth for role and
// active/blocked status: token claims are a snapshot at issuance time and
// must be re-checked on every request.
type Resolver struct {
	users ports.UserDirectory
}

var _ ports.MembershipResolver = (*Resolver)(nil)

// NewResolver constructs a Resolver over the internal user directory.
func NewResolver(users ports.UserDirectory) *Resolver {
	return &Resolver{users: users}
}

// Resolve looks up the internal user for the claim's subject and returns the
// authorization identity. A valid token for a user not provisioned internally
// is not authorized.
func (r *Resolver) Resolve(ctx context.Context, claim domainauth.IdentityClaim) (domainauth.ResolvedIdentity, error) {
	user, err := r.users.FindByCognitoSubject(ctx, claim.Subject)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return domainauth.ResolvedIdentity{}, &domainauth.AuthzError{
				Code:    domainauth.AuthzNoRecord,
				Subject: claim.Subject,
			}
		}
		return domainauth.ResolvedIdentity{}, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsBlocked {
		return domainauth.ResolvedIdentity{}, &domainauth.AuthzError{
			Code:    domainauth.AuthzBlocked,
			Subject: claim.Subject,
		}
	}
	if !user.IsActive {
		return domainauth.ResolvedIdentity{}, &domainauth.AuthzError{
			Code:    domainauth.AuthzInactive,
			Subject: claim.Subject,
		}
	}

	// Role comes from the internal record, never from the token's group claim.
	return domainauth.ResolvedIdentity{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		CorporateID: user.CorporateID,
	}, nil
}
