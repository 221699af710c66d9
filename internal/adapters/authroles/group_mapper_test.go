package authroles

import (
	"testing"

	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
)

func TestStaticGroupMapper(t *testing.T) {
	m := StaticGroupMapper{
		AdminGroup:     "EDBRIDGE_ADMIN",
		CorporateGroup: "EDBRIDGE_CORPORATE",
		StudentGroup:   "EDBRIDGE_STUDENT",
	}

	tests := []struct {
		role  domainauth.Role
		group string
	}{
		{domainauth.RoleAdmin, "EDBRIDGE_ADMIN"},
		{domainauth.RoleCorporate, "EDBRIDGE_CORPORATE"},
		{domainauth.RoleStudent, "EDBRIDGE_STUDENT"},
	}

	for _, tt := range tests {
		if got := m.GroupFor(tt.role); got != tt.group {
			t.Errorf("GroupFor(%s) = %q, want %q", tt.role, got, tt.group)
		}
		role, ok := m.RoleFor(tt.group)
		if !ok || role != tt.role {
			t.Errorf("RoleFor(%q) = %q, %v, want %q", tt.group, role, ok, tt.role)
		}
	}

	if got := m.GroupFor("SUPERUSER"); got != "" {
		t.Errorf("unknown role mapped to %q", got)
	}
	if _, ok := m.RoleFor("SOME_OTHER_GROUP"); ok {
		t.Error("unknown group must carry no role")
	}
}
