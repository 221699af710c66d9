package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeIdP authenticates against the external identity provider.
	AuthModeIdP AuthMode = "idp"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "idp", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: idp, mock)", v)
	}
}

// IdPConfig contains the external identity provider configuration.
type IdPConfig struct {
	// Issuer is the user-pool issuer URL; verified tokens must carry it in "iss".
	Issuer string `env:"ISSUER"`

	// ClientID is the application client id; verified tokens must carry it in
	// "aud" (id tokens) or "client_id" (access tokens).
	ClientID string `env:"CLIENT_ID"`

	// AdminBaseURL is the base URL for administrative operations
	// (create user, set password, group membership).
	AdminBaseURL string `env:"ADMIN_BASE_URL"`

	// AuthBaseURL is the base URL for authentication operations
	// (login, refresh, forgot/reset password, sign-out).
	// Defaults to AdminBaseURL when empty.
	AuthBaseURL string `env:"AUTH_BASE_URL"`

	// Timeout bounds every outbound IdP call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// JWKSTimeout bounds a JWKS fetch, distinct from Timeout.
	JWKSTimeout time.Duration `env:"JWKS_TIMEOUT" envDefault:"10s"`

	// JWKSRefreshInterval is the background TTL for the cached key set.
	JWKSRefreshInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"1h"`
}

// JWKSEndpoint returns the published key-set URL derived from the issuer.
func (c IdPConfig) JWKSEndpoint() string {
	return strings.TrimSuffix(c.Issuer, "/") + "/.well-known/jwks.json"
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Subject string   `env:"SUBJECT" envDefault:"dev-subject"`
	Email   string   `env:"EMAIL"   envDefault:"dev@example.com"`
	Groups  []string `env:"GROUPS"  envDefault:"ADMIN"          envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"idp"`

	// IdP configuration (used when Mode=idp).
	IdP IdPConfig `envPrefix:"IDP_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminGroup is the IdP group asserting the admin portal role.
	AdminGroup string `env:"ADMIN_GROUP" envDefault:"ADMIN"`

	// CorporateGroup is the IdP group asserting the corporate portal role.
	CorporateGroup string `env:"CORPORATE_GROUP" envDefault:"CORPORATE"`

	// StudentGroup is the IdP group asserting the student portal role.
	StudentGroup string `env:"STUDENT_GROUP" envDefault:"STUDENT"`

	// ClockSkew is the fixed tolerance applied to token expiry checks.
	ClockSkew time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"60s"`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	if c.ClockSkew < 0 {
		c.ClockSkew = 0
	}
	if c.IdP.Timeout <= 0 {
		c.IdP.Timeout = 5 * time.Second
	}
	if c.IdP.JWKSTimeout <= 0 {
		c.IdP.JWKSTimeout = 10 * time.Second
	}
	if c.IdP.JWKSRefreshInterval <= 0 {
		c.IdP.JWKSRefreshInterval = time.Hour
	}
	if c.IdP.AuthBaseURL == "" {
		c.IdP.AuthBaseURL = c.IdP.AdminBaseURL
	}
}
