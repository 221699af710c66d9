package service

import (
	"context"
	"testing"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
)

func claimFor(subject string) domainauth.IdentityClaim {
	return domainauth.IdentityClaim{
		Subject:  subject,
		Email:    subject + "@portal.test",
		TokenUse: domainauth.TokenUseAccess,
	}
}

func TestResolve_Success(t *testing.T) {
	corpID := int64(42)
	dir := &fakeDirectory{users: map[string]domainauth.InternalUser{
		"sub-1": {
			ID:             7,
			CognitoSubject: "sub-1",
			Email:          "alice@portal.test",
			Role:           domainauth.RoleCorporate,
			IsActive:       true,
			CorporateID:    &corpID,
		},
	}}
	r := NewResolver(dir)

	identity, err := r.Resolve(context.Background(), claimFor("sub-1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if identity.UserID != 7 {
		t.Errorf("UserID = %d, want 7", identity.UserID)
	}
	if identity.Email != "alice@portal.test" {
		t.Errorf("Email = %q", identity.Email)
	}
	if identity.Role != domainauth.RoleCorporate {
		t.Errorf("Role = %q", identity.Role)
	}
	if identity.CorporateID == nil || *identity.CorporateID != corpID {
		t.Errorf("CorporateID = %v, want %d", identity.CorporateID, corpID)
	}
}

func TestResolve_NoRecord(t *testing.T) {
	r := NewResolver(&fakeDirectory{users: map[string]domainauth.InternalUser{}})

	_, err := r.Resolve(context.Background(), claimFor("ghost"))
	ae, ok := domainauth.AsAuthzError(err)
	if !ok {
		t.Fatalf("expected AuthzError, got %v", err)
	}
	if ae.Code != domainauth.AuthzNoRecord {
		t.Errorf("code = %s, want %s", ae.Code, domainauth.AuthzNoRecord)
	}
	if ae.Subject != "ghost" {
		t.Errorf("subject = %q", ae.Subject)
	}
}

func TestResolve_BlockedAndInactive(t *testing.T) {
	tests := []struct {
		name string
		user domainauth.InternalUser
		want domainauth.AuthzErrorCode
	}{
		{
			name: "blocked user",
			user: domainauth.InternalUser{CognitoSubject: "sub-1", Role: domainauth.RoleStudent, IsActive: true, IsBlocked: true},
			want: domainauth.AuthzBlocked,
		},
		{
			name: "blocked admin is still blocked",
			user: domainauth.InternalUser{CognitoSubject: "sub-1", Role: domainauth.RoleAdmin, IsActive: true, IsBlocked: true},
			want: domainauth.AuthzBlocked,
		},
		{
			name: "inactive user",
			user: domainauth.InternalUser{CognitoSubject: "sub-1", Role: domainauth.RoleStudent, IsActive: false},
			want: domainauth.AuthzInactive,
		},
		{
			name: "blocked wins over inactive",
			user: domainauth.InternalUser{CognitoSubject: "sub-1", Role: domainauth.RoleStudent, IsActive: false, IsBlocked: true},
			want: domainauth.AuthzBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{users: map[string]domainauth.InternalUser{"sub-1": tt.user}}
			_, err := NewResolver(dir).Resolve(context.Background(), claimFor("sub-1"))
			ae, ok := domainauth.AsAuthzError(err)
			if !ok {
				t.Fatalf("expected AuthzError, got %v", err)
			}
			if ae.Code != tt.want {
				t.Errorf("code = %s, want %s", ae.Code, tt.want)
			}
		})
	}
}

func TestResolve_DirectoryFailure(t *testing.T) {
	dir := &fakeDirectory{err: context.DeadlineExceeded}
	_, err := NewResolver(dir).Resolve(context.Background(), claimFor("sub-1"))
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := domainauth.AsAuthzError(err); ok {
		t.Fatalf("infrastructure failure must not look like an authz denial: %v", err)
	}
}
