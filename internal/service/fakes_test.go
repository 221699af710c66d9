package service

import (
	"context"
	"errors"

	"github.com/edbridge/portal-api/internal/data"
	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
	"github.com/edbridge/portal-api/internal/ports"
)

// fakeProvider implements ports.IdentityProvider with per-call hooks.
// Unset hooks succeed with zero values.
type fakeProvider struct {
	createUser  func(ctx context.Context, in ports.CreateUserInput) (ports.ProvisionedUser, error)
	setPassword func(ctx context.Context, subject, password string) error
	addToGroup  func(ctx context.Context, subject, group string) error
	getUser     func(ctx context.Context, subject string) (ports.ProvisionedUser, error)
	login       func(ctx context.Context, in ports.LoginInput) (domainauth.TokenSet, error)
	refresh     func(ctx context.Context, refreshToken string) (domainauth.TokenSet, error)
	forgot      func(ctx context.Context, email string) error
	reset       func(ctx context.Context, email, code, newPassword string) error
	logout      func(ctx context.Context, accessToken string) error
}

var _ ports.IdentityProvider = (*fakeProvider)(nil)

func (f *fakeProvider) CreateUser(ctx context.Context, in ports.CreateUserInput) (ports.ProvisionedUser, error) {
	if f.createUser == nil {
		return ports.ProvisionedUser{Subject: "sub-" + in.Email, Email: in.Email, Group: in.Group}, nil
	}
	return f.createUser(ctx, in)
}

func (f *fakeProvider) SetPermanentPassword(ctx context.Context, subject, password string) error {
	if f.setPassword == nil {
		return nil
	}
	return f.setPassword(ctx, subject, password)
}

func (f *fakeProvider) AddToGroup(ctx context.Context, subject, group string) error {
	if f.addToGroup == nil {
		return nil
	}
	return f.addToGroup(ctx, subject, group)
}

func (f *fakeProvider) GetUser(ctx context.Context, subject string) (ports.ProvisionedUser, error) {
	if f.getUser == nil {
		return ports.ProvisionedUser{Subject: subject}, nil
	}
	return f.getUser(ctx, subject)
}

func (f *fakeProvider) Login(ctx context.Context, in ports.LoginInput) (domainauth.TokenSet, error) {
	if f.login == nil {
		return domainauth.TokenSet{}, errors.New("login not stubbed")
	}
	return f.login(ctx, in)
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (domainauth.TokenSet, error) {
	if f.refresh == nil {
		return domainauth.TokenSet{}, errors.New("refresh not stubbed")
	}
	return f.refresh(ctx, refreshToken)
}

func (f *fakeProvider) ForgotPassword(ctx context.Context, email string) error {
	if f.forgot == nil {
		return nil
	}
	return f.forgot(ctx, email)
}

func (f *fakeProvider) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if f.reset == nil {
		return nil
	}
	return f.reset(ctx, email, code, newPassword)
}

func (f *fakeProvider) Logout(ctx context.Context, accessToken string) error {
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx, accessToken)
}

// fakeDirectory serves FindByCognitoSubject from a map.
type fakeDirectory struct {
	users map[string]domainauth.InternalUser
	err   error
}

func (f *fakeDirectory) FindByCognitoSubject(_ context.Context, subject string) (domainauth.InternalUser, error) {
	if f.err != nil {
		return domainauth.InternalUser{}, f.err
	}
	user, ok := f.users[subject]
	if !ok {
		return domainauth.InternalUser{}, data.ErrUserNotFound
	}
	return user, nil
}

// fakeWriter records Upsert calls.
type fakeWriter struct {
	params []data.CreateUserParams
	err    error
}

func (f *fakeWriter) Upsert(_ context.Context, params data.CreateUserParams) (domainauth.InternalUser, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return domainauth.InternalUser{}, f.err
	}
	return domainauth.InternalUser{
		ID:             int64(len(f.params)),
		CognitoSubject: params.CognitoSubject,
		Email:          params.Email,
		Role:           params.Role,
		IsActive:       true,
		FullName:       params.FullName,
		CorporateID:    params.CorporateID,
	}, nil
}

// fakeLedger records provisioning failures in memory.
type fakeLedger struct {
	recorded  []ports.ProvisionFailure
	recordErr error
}

var _ ports.ProvisionLedger = (*fakeLedger)(nil)

func (f *fakeLedger) Record(_ context.Context, failure ports.ProvisionFailure) error {
	f.recorded = append(f.recorded, failure)
	return f.recordErr
}

func (f *fakeLedger) List(_ context.Context) ([]ports.ProvisionFailure, error) {
	return f.recorded, nil
}

func (f *fakeLedger) Delete(_ context.Context, id string) error {
	for i, failure := range f.recorded {
		if failure.ID == id {
			f.recorded = append(f.recorded[:i], f.recorded[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

var testGroups = staticGroups{}

// staticGroups is a fixed role/group mapping for tests.
type staticGroups struct{}

func (staticGroups) GroupFor(role domainauth.Role) string {
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

func (staticGroups) RoleFor(group string) (domainauth.Role, bool) {
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
