package ports

// Package ports defines interfaces (hexagonal ports) for identity-related
// behavior. Implementations live in internal/adapters and internal/data;
// orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
)

// CreateUserInput carries inputs for provisioning a user at the IdP.
type CreateUserInput struct {
	Email    string
	Password string
	Group    string
}

// ProvisionedUser describes the IdP-side state after provisioning.
type ProvisionedUser struct {
	Subject string
	Email   string
	Group   string
}

// LoginInput groups parameters for password authentication.
// RequiredGroup, when non-empty, rejects correctly-authenticated users whose
// token does not assert membership in that group.
type LoginInput struct {
	Email         string
	Password      string
	RequiredGroup string
}

// IdentityProvider wraps the external IdP's administrative and authentication
// operations. Implementations apply bounded retry for idempotent or
// provider-flagged transient failures only.
type IdentityProvider interface {
	// CreateUser ensures the user exists at the IdP. An already-existing
	// username is not an error; the existing subject is returned.
	CreateUser(ctx context.Context, in CreateUserInput) (ProvisionedUser, error)

	// SetPermanentPassword makes the credential non-temporary and immediately
	// usable. Always invoked after CreateUser.
	SetPermanentPassword(ctx context.Context, subject, password string) error

	// AddToGroup attaches the subject to an IdP group. Failures propagate so
	// the caller can record the half-provisioned state.
	AddToGroup(ctx context.Context, subject, group string) error

	// GetUser fetches the IdP user record by subject.
	GetUser(ctx context.Context, subject string) (ProvisionedUser, error)

	// Login authenticates with email and password.
	Login(ctx context.Context, in LoginInput) (domainauth.TokenSet, error)

	// Refresh exchanges a refresh token for fresh id and access tokens.
	// The returned set carries no refresh token.
	Refresh(ctx context.Context, refreshToken string) (domainauth.TokenSet, error)

	// ForgotPassword starts the password recovery flow.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword completes password recovery with the emailed code.
	ResetPassword(ctx context.Context, email, code, newPassword string) error

	// Logout performs a global sign-out, revoking all outstanding tokens.
	Logout(ctx context.Context, accessToken string) error
}

// TokenVerifier validates a raw bearer token and produces a typed claim or a
// typed *auth.TokenError.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string, expectedUse domainauth.TokenUse) (domainauth.IdentityClaim, error)
}

// UserDirectory is the database boundary this core consumes but does not own.
type UserDirectory interface {
	// FindByCognitoSubject returns the internal user for an IdP subject, or
	// data.ErrUserNotFound when no record exists.
	FindByCognitoSubject(ctx context.Context, subject string) (domainauth.InternalUser, error)
}

// ProvisionFailure records a provisioning run that left the IdP account in a
// partial state (created but password or group step failed).
type ProvisionFailure struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Email      string    `json:"email"`
	Group      string    `json:"group"`
	FailedStep string    `json:"failed_step"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ProvisionLedger persists partial-provisioning failures so operational
// tooling can detect and repair orphaned accounts. This core never replays
// entries automatically.
type ProvisionLedger interface {
	Record(ctx context.Context, failure ProvisionFailure) error
	List(ctx context.Context) ([]ProvisionFailure, error)
	Delete(ctx context.Context, id string) error
}

// MembershipResolver reconciles a verified claim with internal user state.
type MembershipResolver interface {
	Resolve(ctx context.Context, claim domainauth.IdentityClaim) (domainauth.ResolvedIdentity, error)
}

// GroupMapper maps between application roles and IdP group names.
type GroupMapper interface {
	GroupFor(role domainauth.Role) string
	RoleFor(group string) (domainauth.Role, bool)
}
