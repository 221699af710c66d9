package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/ports"
	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider supplies the signing key for a key id. The production
// implementation is the JWKS cache; dev auth provides its own local key.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// VerifierConfig configures token verification.
type VerifierConfig struct {
	// Issuer is the user-pool issuer URL every token must carry in "iss".
	Issuer string
	// ClientID is the application client id expected in "aud" (id tokens) or
	// "client_id" (access tokens).
	ClientID string
	// ClockSkew is the fixed leeway applied to expiry checks. Default 60s.
	ClockSkew time.Duration
	// Keys resolves signing keys by key id.
	Keys KeyProvider
}

// JWTVerifier validates bearer tokens and produces typed identity claims.
// Every failing check short-circuits to a distinct *auth.TokenError code; the
// guard and the client depend on telling expiry apart from tampering.
type JWTVerifier struct {
	issuer    string
	clientID  string
	clockSkew time.Duration
	keys      KeyProvider
	parser    *jwt.Parser
}

var _ ports.TokenVerifier = (*JWTVerifier)(nil)

// NewJWTVerifier constructs a JWTVerifier.
func NewJWTVerifier(cfg VerifierConfig) (*JWTVerifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("verifier: issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("verifier: client id is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("verifier: key provider is required")
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 60 * time.Second
	}
	return &JWTVerifier{
		issuer:    cfg.Issuer,
		clientID:  cfg.ClientID,
		clockSkew: skew,
		keys:      cfg.Keys,
		parser: jwt.NewParser(
			// The "none" algorithm and symmetric methods are never accepted.
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithLeeway(skew),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// idpClaims is the claim shape the IdP puts in both token kinds.
type idpClaims struct {
	jwt.RegisteredClaims
	TokenUse string   `json:"token_use"`
	ClientID string   `json:"client_id,omitempty"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"cognito:groups,omitempty"`
}

// Verify validates the raw token's signature, issuer, audience, expiry, and
// declared use. The token alone is never sufficient for authorization; the
// resolved internal record is (see Resolver).
func (v *JWTVerifier) Verify(ctx context.Context, rawToken string, expectedUse domainauth.TokenUse) (domainauth.IdentityClaim, error) {
	var claims idpClaims
	token, err := v.parser.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header missing kid")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return domainauth.IdentityClaim{}, v.mapParseError(rawToken, err)
	}
	if !token.Valid {
		return domainauth.IdentityClaim{}, domainauth.NewTokenError(domainauth.TokenBadSignature, errors.New("token not valid"))
	}

	if claims.Issuer != v.issuer {
		return domainauth.IdentityClaim{}, domainauth.NewTokenError(domainauth.TokenWrongIssuer,
			fmt.Errorf("issuer %q", claims.Issuer))
	}
	if claims.TokenUse != string(expectedUse) {
		return domainauth.IdentityClaim{}, domainauth.NewTokenError(domainauth.TokenWrongUse,
			fmt.Errorf("token_use %q, expected %q", claims.TokenUse, expectedUse))
	}
	if err := v.checkAudience(claims, expectedUse); err != nil {
		return domainauth.IdentityClaim{}, err
	}
	if claims.ExpiresAt == nil {
		return domainauth.IdentityClaim{}, domainauth.NewTokenError(domainauth.TokenMalformed, errors.New("missing exp"))
	}

	claim := domainauth.IdentityClaim{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Groups:    append([]string(nil), claims.Groups...),
		TokenUse:  expectedUse,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		claim.IssuedAt = claims.IssuedAt.Time
	}
	return claim, nil
}

// checkAudience verifies the client binding. Id tokens carry the client id in
// "aud"; access tokens carry it in "client_id".
func (v *JWTVerifier) checkAudience(claims idpClaims, use domainauth.TokenUse) error {
	switch use {
	case domainauth.TokenUseAccess:
		if claims.ClientID != v.clientID {
			return domainauth.NewTokenError(domainauth.TokenWrongAudience,
				fmt.Errorf("client_id %q", claims.ClientID))
		}
	default:
		for _, aud := range claims.Audience {
			if aud == v.clientID {
				return nil
			}
		}
		return domainauth.NewTokenError(domainauth.TokenWrongAudience,
			fmt.Errorf("aud %v", claims.Audience))
	}
	return nil
}

// mapParseError converts golang-jwt failures to typed token errors. Expiry
// takes precedence over signature problems: an expired token reports EXPIRED
// even when the signature also fails, so clients fall back to refresh rather
// than a hard logout.
func (v *JWTVerifier) mapParseError(rawToken string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domainauth.NewTokenError(domainauth.TokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domainauth.NewTokenError(domainauth.TokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		if expiredUnverified(rawToken, v.clockSkew) {
			return domainauth.NewTokenError(domainauth.TokenExpired, err)
		}
		return domainauth.NewTokenError(domainauth.TokenBadSignature, err)
	default:
		return domainauth.NewTokenError(domainauth.TokenMalformed, err)
	}
}

// expiredUnverified reports whether the token's exp claim is in the past,
// read without verifying the signature.
func expiredUnverified(rawToken string, skew time.Duration) bool {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(rawToken, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(-skew).After(claims.ExpiresAt.Time)
}
