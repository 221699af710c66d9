package devauth

// Package devauth provides a self-contained, config-driven identity provider
// for local development. It mints RS256 tokens with a locally generated key
// and doubles as the verifier's key provider, so the full verify-resolve
// pipeline runs without an external IdP.

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/ports"
	"github.com/golang-jwt/jwt/v5"
)

// Config controls the dev auth provider behavior.
type Config struct {
	Subject       string
	Email         string
	Groups        []string
	Issuer        string
	ClientID      string
	TokenLifetime time.Duration // default 8h when zero
}

// Provider implements ports.IdentityProvider for local development. Login
// accepts any credentials and returns tokens for the configured identity.
type Provider struct {
	cfg Config
	key *rsa.PrivateKey
	kid string
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider constructs a dev auth provider from Config, generating a fresh
// signing key per process.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Subject == "" {
		return nil, errors.New("dev auth: Subject is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.TokenLifetime == 0 {
		cfg.TokenLifetime = 8 * time.Hour
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("dev auth: generate key: %w", err)
	}
	sum := sha256.Sum256(key.PublicKey.N.Bytes())
	return &Provider{
		cfg: cfg,
		key: key,
		kid: base64.RawURLEncoding.EncodeToString(sum[:8]),
	}, nil
}

// Key returns the provider's public key so the token verifier can be wired
// directly against this in-process issuer.
func (p *Provider) Key(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if kid != p.kid {
		return nil, fmt.Errorf("dev auth: unknown kid %q", kid)
	}
	return &p.key.PublicKey, nil
}

func (p *Provider) CreateUser(_ context.Context, in ports.CreateUserInput) (ports.ProvisionedUser, error) {
	return ports.ProvisionedUser{Subject: p.cfg.Subject, Email: in.Email, Group: in.Group}, nil
}

func (p *Provider) SetPermanentPassword(_ context.Context, _, _ string) error { return nil }

func (p *Provider) AddToGroup(_ context.Context, _, _ string) error { return nil }

func (p *Provider) GetUser(_ context.Context, subject string) (ports.ProvisionedUser, error) {
	if subject != p.cfg.Subject {
		return ports.ProvisionedUser{}, &domainauth.ProviderError{
			Name:    domainauth.ProviderErrUserNotFound,
			Message: "unknown dev subject",
		}
	}
	group := ""
	if len(p.cfg.Groups) > 0 {
		group = p.cfg.Groups[0]
	}
	return ports.ProvisionedUser{Subject: p.cfg.Subject, Email: p.cfg.Email, Group: group}, nil
}

// Login accepts any credentials and mints tokens for the configured identity.
// The required-group check still applies so portal-surface behavior matches
// production.
func (p *Provider) Login(_ context.Context, in ports.LoginInput) (domainauth.TokenSet, error) {
	if in.RequiredGroup != "" && !p.hasGroup(in.RequiredGroup) {
		return domainauth.TokenSet{}, &domainauth.ProviderError{
			Name:    domainauth.ProviderErrNotAuthorized,
			Message: "account is not a member of the required group",
		}
	}
	return p.mintTokenSet(true)
}

func (p *Provider) Refresh(_ context.Context, refreshToken string) (domainauth.TokenSet, error) {
	if refreshToken == "" {
		return domainauth.TokenSet{}, &domainauth.ProviderError{
			Name:    domainauth.ProviderErrNotAuthorized,
			Message: "missing refresh token",
		}
	}
	return p.mintTokenSet(false)
}

func (p *Provider) ForgotPassword(_ context.Context, _ string) error { return nil }

func (p *Provider) ResetPassword(_ context.Context, _, _, _ string) error { return nil }

func (p *Provider) Logout(_ context.Context, _ string) error { return nil }

func (p *Provider) hasGroup(group string) bool {
	for _, g := range p.cfg.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (p *Provider) mintTokenSet(withRefresh bool) (domainauth.TokenSet, error) {
	expiresAt := time.Now().Add(p.cfg.TokenLifetime)

	idToken, err := p.mint(domainauth.TokenUseID, expiresAt)
	if err != nil {
		return domainauth.TokenSet{}, err
	}
	accessToken, err := p.mint(domainauth.TokenUseAccess, expiresAt)
	if err != nil {
		return domainauth.TokenSet{}, err
	}

	set := domainauth.TokenSet{
		IDToken:     idToken,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
	}
	if withRefresh {
		set.RefreshToken = "dev-refresh-" + p.cfg.Subject
	}
	return set, nil
}

type devClaims struct {
	jwt.RegisteredClaims
	TokenUse string   `json:"token_use"`
	ClientID string   `json:"client_id,omitempty"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"cognito:groups,omitempty"`
}

func (p *Provider) mint(use domainauth.TokenUse, expiresAt time.Time) (string, error) {
	claims := devClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.cfg.Subject,
			Issuer:    p.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenUse: string(use),
		Email:    p.cfg.Email,
		Groups:   append([]string(nil), p.cfg.Groups...),
	}
	switch use {
	case domainauth.TokenUseID:
		claims.Audience = jwt.ClaimStrings{p.cfg.ClientID}
	case domainauth.TokenUseAccess:
		claims.ClientID = p.cfg.ClientID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.kid
	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("dev auth: sign token: %w", err)
	}
	return signed, nil
}
