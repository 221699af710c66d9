package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/ports"
)

// Portal identifies a login surface. Each surface demands membership in its
// backing IdP group, so a valid student credential is rejected on the
// corporate portal even though the password is correct.
type Portal string

const (
	PortalAdmin     Portal = "admin"
	PortalCorporate Portal = "corporate"
	PortalStudent   Portal = "student"
)

// RoleFor returns the role a portal surface requires, or false for an
// unknown portal name.
func (p Portal) RoleFor() (domainauth.Role, bool) {
	switch p {
	case PortalAdmin:
		return domainauth.RoleAdmin, true
	case PortalCorporate:
		return domainauth.RoleCorporate, true
	case PortalStudent:
		return domainauth.RoleStudent, true
	}
	return "", false
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.IdentityProvider
	Groups   ports.GroupMapper
	Logger   *slog.Logger
}

// AuthService orchestrates authentication flows against the identity
// provider. It holds no per-user state; authorization is recomputed from the
// token and database on every request.
type AuthService struct {
	provider ports.IdentityProvider
	groups   ports.GroupMapper
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider: opts.Provider,
		groups:   opts.Groups,
		logger:   logger,
	}
}

// LoginInput groups parameters for Login.
type LoginInput struct {
	Email    string
	Password string
	Portal   Portal // optional; empty means no surface restriction
}

// Login authenticates against the IdP. When a portal is named, the resulting
// token must assert membership in that portal's group.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (domainauth.TokenSet, error) {
	if in.Email == "" || in.Password == "" {
		return domainauth.TokenSet{}, errors.New("email and password are required")
	}

	requiredGroup := ""
	if in.Portal != "" {
		role, ok := in.Portal.RoleFor()
		if !ok {
			return domainauth.TokenSet{}, fmt.Errorf("unknown portal %q", in.Portal)
		}
		requiredGroup = s.groups.GroupFor(role)
	}

	tokens, err := s.provider.Login(ctx, ports.LoginInput{
		Email:         in.Email,
		Password:      in.Password,
		RequiredGroup: requiredGroup,
	})
	if err != nil {
		// Precise cause stays in the logs; the handler surfaces a generic
		// invalid-credentials message to avoid account enumeration.
		s.logger.InfoContext(ctx, "login failed", "portal", string(in.Portal), "error", err)
		return domainauth.TokenSet{}, fmt.Errorf("login: %w", err)
	}
	return tokens, nil
}

// Refresh exchanges a refresh token for fresh id and access tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domainauth.TokenSet, error) {
	if refreshToken == "" {
		return domainauth.TokenSet{}, errors.New("refresh token is required")
	}
	tokens, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return domainauth.TokenSet{}, fmt.Errorf("refresh: %w", err)
	}
	return tokens, nil
}

// ForgotPassword starts password recovery. Errors other than throttling are
// swallowed after logging so the endpoint cannot be used to enumerate
// accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if err := s.provider.ForgotPassword(ctx, email); err != nil {
		s.logger.InfoContext(ctx, "forgot password failed", "error", err)
		if pe, ok := domainauth.AsProviderError(err); ok && pe.Retryable {
			return fmt.Errorf("forgot password: %w", err)
		}
		return nil
	}
	return nil
}

// ResetPassword completes password recovery with the emailed code.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if email == "" || code == "" || newPassword == "" {
		return errors.New("email, code, and new password are required")
	}
	if err := s.provider.ResetPassword(ctx, email, code, newPassword); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// Logout performs a global sign-out, revoking all outstanding tokens for the
// user behind the access token.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil // Nothing to log out
	}
	if err := s.provider.Logout(ctx, accessToken); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
