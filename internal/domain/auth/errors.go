package auth

import (
	"errors"
	"fmt"
)

// TokenErrorCode categorizes token verification failures. The guard and the
// client UX depend on distinguishing expiry (retry with refresh) from
// tampering (hard logout), so verification never collapses to a generic
// "invalid" result.
type TokenErrorCode string

const (
	TokenExpired       TokenErrorCode = "expired"
	TokenBadSignature  TokenErrorCode = "bad_signature"
	TokenWrongAudience TokenErrorCode = "wrong_audience"
	TokenWrongIssuer   TokenErrorCode = "wrong_issuer"
	TokenWrongUse      TokenErrorCode = "wrong_use"
	TokenMalformed     TokenErrorCode = "malformed"
)

// TokenError is a typed token verification failure. Always surfaced to the
// client as 401 and never retried server-side.
type TokenError struct {
	Code  TokenErrorCode
	Cause error
}

func (e *TokenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("token %s: %v", e.Code, e.Cause)
	}
	return "token " + string(e.Code)
}

func (e *TokenError) Unwrap() error { return e.Cause }

// NewTokenError constructs a TokenError with the given code and cause.
func NewTokenError(code TokenErrorCode, cause error) *TokenError {
	return &TokenError{Code: code, Cause: cause}
}

// AsTokenError unwraps err into a *TokenError when possible.
func AsTokenError(err error) (*TokenError, bool) {
	var te *TokenError
	ok := errors.As(err, &te)
	return te, ok
}

// Provider error names the IdP reports that this core gives meaning to.
const (
	ProviderErrUsernameExists   = "UsernameExistsException"
	ProviderErrNotAuthorized    = "NotAuthorizedException"
	ProviderErrUserNotConfirmed = "UserNotConfirmedException"
	ProviderErrUserNotFound     = "UserNotFoundException"
	ProviderErrTooManyRequests  = "TooManyRequestsException"
	ProviderErrCodeMismatch     = "CodeMismatchException"
	ProviderErrExpiredCode      = "ExpiredCodeException"
)

// ProviderError carries the IdP's reported error name and message.
// Retryable is set only for failures the provider explicitly marks as
// transient (throttling); mutating calls are never retried otherwise.
type ProviderError struct {
	Name      string
	Message   string
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity provider: %s: %s", e.Name, e.Message)
	}
	return "identity provider: " + e.Name
}

// Is matches ProviderErrors by name so callers can use errors.Is with a
// sentinel like &ProviderError{Name: ProviderErrUsernameExists}.
func (e *ProviderError) Is(target error) bool {
	var pe *ProviderError
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Name == e.Name
}

// AsProviderError unwraps err into a *ProviderError when possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}

// IsProviderError reports whether err is a ProviderError with the given name.
func IsProviderError(err error, name string) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Name == name
}

// AuthzErrorCode categorizes membership resolution failures.
type AuthzErrorCode string

const (
	AuthzNoRecord AuthzErrorCode = "no_record"
	AuthzBlocked  AuthzErrorCode = "blocked"
	AuthzInactive AuthzErrorCode = "inactive"
)

// AuthzError is returned when a verified claim cannot be mapped to an
// authorized internal user. Always a 403, logged for audit, never retried.
type AuthzError struct {
	Code    AuthzErrorCode
	Subject string
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization %s: subject %s", e.Code, e.Subject)
}

// AsAuthzError unwraps err into an *AuthzError when possible.
func AsAuthzError(err error) (*AuthzError, bool) {
	var ae *AuthzError
	ok := errors.As(err, &ae)
	return ae, ok
}

// DecisionReason maps an authz failure code to its access decision reason.
func (e *AuthzError) DecisionReason() DecisionReason {
	switch e.Code {
	case AuthzBlocked:
		return ReasonAccountBlocked
	case AuthzInactive:
		return ReasonAccountInactive
	default:
		return ReasonNoRecord
	}
}

// ErrPartialProvisioning marks a provisioning run that created the IdP
// account but failed before group membership was applied. Distinct from total
// failure so operational tooling can detect and repair orphaned accounts.
var ErrPartialProvisioning = errors.New("account partially provisioned")
