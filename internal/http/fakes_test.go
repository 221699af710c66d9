package httpx

import (
	"context"
	"errors"

	"github.com/edbridge/portal-api/internal/data"
	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/ports"
)

// testVerifier returns a fixed claim keyed by raw token string.
type testVerifier struct {
	claims map[string]domainauth.IdentityClaim
	errs   map[string]error
}

func (v *testVerifier) Verify(_ context.Context, rawToken string, _ domainauth.TokenUse) (domainauth.IdentityClaim, error) {
	if err, ok := v.errs[rawToken]; ok {
		return domainauth.IdentityClaim{}, err
	}
	claim, ok := v.claims[rawToken]
	if !ok {
		return domainauth.IdentityClaim{}, domainauth.NewTokenError(domainauth.TokenBadSignature, errors.New("unknown token"))
	}
	return claim, nil
}

// testResolver resolves identities from a subject map.
type testResolver struct {
	identities map[string]domainauth.ResolvedIdentity
	errs       map[string]error
}

func (r *testResolver) Resolve(_ context.Context, claim domainauth.IdentityClaim) (domainauth.ResolvedIdentity, error) {
	if err, ok := r.errs[claim.Subject]; ok {
		return domainauth.ResolvedIdentity{}, err
	}
	identity, ok := r.identities[claim.Subject]
	if !ok {
		return domainauth.ResolvedIdentity{}, &domainauth.AuthzError{Code: domainauth.AuthzNoRecord, Subject: claim.Subject}
	}
	return identity, nil
}

// testProvider implements ports.IdentityProvider with per-call hooks; unset
// hooks succeed with canned values.
type testProvider struct {
	createUser  func(ctx context.Context, in ports.CreateUserInput) (ports.ProvisionedUser, error)
	setPassword func(ctx context.Context, subject, password string) error
	addToGroup  func(ctx context.Context, subject, group string) error
	login       func(ctx context.Context, in ports.LoginInput) (domainauth.TokenSet, error)
	refresh     func(ctx context.Context, refreshToken string) (domainauth.TokenSet, error)
	forgot      func(ctx context.Context, email string) error
	reset       func(ctx context.Context, email, code, newPassword string) error
	logout      func(ctx context.Context, accessToken string) error
}

var _ ports.IdentityProvider = (*testProvider)(nil)

func (f *testProvider) CreateUser(ctx context.Context, in ports.CreateUserInput) (ports.ProvisionedUser, error) {
	if f.createUser == nil {
		return ports.ProvisionedUser{Subject: "sub-" + in.Email, Email: in.Email, Group: in.Group}, nil
	}
	return f.createUser(ctx, in)
}

func (f *testProvider) SetPermanentPassword(ctx context.Context, subject, password string) error {
	if f.setPassword == nil {
		return nil
	}
	return f.setPassword(ctx, subject, password)
}

func (f *testProvider) AddToGroup(ctx context.Context, subject, group string) error {
	if f.addToGroup == nil {
		return nil
	}
	return f.addToGroup(ctx, subject, group)
}

func (f *testProvider) GetUser(_ context.Context, subject string) (ports.ProvisionedUser, error) {
	return ports.ProvisionedUser{Subject: subject}, nil
}

func (f *testProvider) Login(ctx context.Context, in ports.LoginInput) (domainauth.TokenSet, error) {
	if f.login == nil {
		return domainauth.TokenSet{}, errors.New("login not stubbed")
	}
	return f.login(ctx, in)
}

func (f *testProvider) Refresh(ctx context.Context, refreshToken string) (domainauth.TokenSet, error) {
	if f.refresh == nil {
		return domainauth.TokenSet{}, errors.New("refresh not stubbed")
	}
	return f.refresh(ctx, refreshToken)
}

func (f *testProvider) ForgotPassword(ctx context.Context, email string) error {
	if f.forgot == nil {
		return nil
	}
	return f.forgot(ctx, email)
}

func (f *testProvider) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if f.reset == nil {
		return nil
	}
	return f.reset(ctx, email, code, newPassword)
}

func (f *testProvider) Logout(ctx context.Context, accessToken string) error {
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx, accessToken)
}

// testWriter records Upsert calls.
type testWriter struct {
	params []data.CreateUserParams
	err    error
}

func (f *testWriter) Upsert(_ context.Context, params data.CreateUserParams) (domainauth.InternalUser, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return domainauth.InternalUser{}, f.err
	}
	return domainauth.InternalUser{
		ID:             1,
		CognitoSubject: params.CognitoSubject,
		Email:          params.Email,
		Role:           params.Role,
		IsActive:       true,
	}, nil
}

// testLedger keeps provisioning failures in memory.
type testLedger struct {
	recorded  []ports.ProvisionFailure
	listErr   error
	deleteErr error
}

var _ ports.ProvisionLedger = (*testLedger)(nil)

func (f *testLedger) Record(_ context.Context, failure ports.ProvisionFailure) error {
	f.recorded = append(f.recorded, failure)
	return nil
}

func (f *testLedger) List(_ context.Context) ([]ports.ProvisionFailure, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.recorded, nil
}

func (f *testLedger) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, failure := range f.recorded {
		if failure.ID == id {
			f.recorded = append(f.recorded[:i], f.recorded[i+1:]...)
			break
		}
	}
	return nil
}

// testGroupMapper is a fixed role/group mapping.
type testGroupMapper struct{}

func (testGroupMapper) GroupFor(role domainauth.Role) string {
	switch role {
	case domainauth.RoleAdmin:
		return "portal-admins"
	case domainauth.RoleCorporate:
		return "portal-corporate"
	case domainauth.RoleStudent:
		return "portal-students"
	}
	return ""
}

func (testGroupMapper) RoleFor(group string) (domainauth.Role, bool) {
	switch group {
	case "portal-admins":
		return domainauth.RoleAdmin, true
	case "portal-corporate":
		return domainauth.RoleCorporate, true
	case "portal-students":
		return domainauth.RoleStudent, true
	}
	return "", false
}
