package authroles

import (
	domainauth "github.com/edbridge/portal-api/internal/domain/auth"
)

// StaticGroupMapper maps between application roles and the IdP group names
// that assert them. Group names are configuration; roles are domain values.
type StaticGroupMapper struct {
	AdminGroup     string
	CorporateGroup string
	StudentGroup   string
}

// GroupFor returns the IdP group name asserting the given role.
func (m StaticGroupMapper) GroupFor(role domainauth.Role) string {
	switch role {
	case domainauth.RoleAdmin:
		return m.AdminGroup
	case domainauth.RoleCorporate:
		return m.CorporateGroup
	case domainauth.RoleStudent:
		return m.StudentGroup
	}
	return ""
}

// RoleFor returns the role asserted by an IdP group name, or false when the
// group carries no portal meaning.
func (m StaticGroupMapper) RoleFor(group string) (domainauth.Role, bool) {
	switch group {
	case m.AdminGroup:
		return domainauth.RoleAdmin, true
	case m.CorporateGroup:
		return domainauth.RoleCorporate, true
	case m.StudentGroup:
		return domainauth.RoleStudent, true
	}
	return "", false
}
