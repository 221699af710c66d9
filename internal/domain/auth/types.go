package auth

// Package auth contains domain-level types for identity and authorization.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and header serialization.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleCorporate Role = "CORPORATE"
	RoleStudent   Role = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCorporate, RoleStudent:
		return true
	}
	return false
}

// TokenUse distinguishes the two token kinds the IdP issues.
type TokenUse string

const (
	TokenUseID     TokenUse = "id"
	TokenUseAccess TokenUse = "access"
)

// IdentityClaim is the verified assertion extracted from a signed token.
// It is constructed only by the token verifier from a valid signature and
// must be treated as immutable by callers.
type IdentityClaim struct {
	Subject   string // IdP-issued stable id ("sub")
	Email     string
	Groups    []string
	TokenUse  TokenUse
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasGroup reports whether the claim asserts membership in group.
func (c IdentityClaim) HasGroup(group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// InternalUser is the internally stored user record keyed by the IdP subject.
// It is owned by the persistence layer and read-only to this core.
type InternalUser struct {
	ID             int64   `json:"id"                     db:"id"`
	CognitoSubject string  `json:"cognito_subject"        db:"cognito_subject"`
	Email          string  `json:"email"                  db:"email"`
	Role           Role    `json:"role"                   db:"role"`
	IsActive       bool    `json:"is_active"              db:"is_active"`
	IsBlocked      bool    `json:"is_blocked"             db:"is_blocked"`
	FullName       *string `json:"full_name,omitempty"    db:"full_name"`
	CorporateID    *int64  `json:"corporate_id,omitempty" db:"corporate_id"`
}

// ResolvedIdentity is the only identity representation the access guard and
// downstream business logic may trust. It is derived per request from the
// verified claim and the internal record, never cached server-side.
type ResolvedIdentity struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	CorporateID *int64 `json:"corporate_id,omitempty"`
}

// TokenSet carries the tokens the IdP returns on login or refresh.
// RefreshToken is empty on refresh responses; providers do not rotate it.
type TokenSet struct {
	IDToken      string    `json:"id_token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// DecisionReason explains an access decision for audit logging and client UX.
type DecisionReason string

const (
	ReasonNoRequirement   DecisionReason = "no_requirement"
	ReasonRoleMatch       DecisionReason = "role_match"
	ReasonNoIdentity      DecisionReason = "no_identity"
	ReasonRoleMismatch    DecisionReason = "role_mismatch"
	ReasonAccountBlocked  DecisionReason = "account_blocked"
	ReasonAccountInactive DecisionReason = "account_inactive"
	ReasonNoRecord        DecisionReason = "no_record"
)

// AccessDecision is the outcome of a guard evaluation. Denials always carry a
// distinguishing reason, never a bare boolean.
type AccessDecision struct {
	Allowed bool
	Reason  DecisionReason
}

// Allow constructs an allowing decision with the given reason.
func Allow(reason DecisionReason) AccessDecision {
	return AccessDecision{Allowed: true, Reason: reason}
}

// Deny constructs a denying decision with the given reason.
func Deny(reason DecisionReason) AccessDecision {
	return AccessDecision{Allowed: false, Reason: reason}
}
