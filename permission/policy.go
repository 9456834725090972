package permission

import (
	"errors"
	"slices"
	"strings"
)

// DefaultAdminRole is the role that implies every permission.
const DefaultAdminRole = "admin"

// Policy answers UI-level permission questions from a user's role and
// permission list. It never gates backend access.
type Policy struct {
	adminRole string
	grants    map[string][]string
}

// NewPolicy builds a Policy. grants maps a role to permissions every holder
// of that role has in addition to its own list; it may be nil.
func NewPolicy(adminRole string, grants map[string][]string) (*Policy, error) {
	adminRole = strings.TrimSpace(adminRole)
	if adminRole == "" {
		return nil, errors.New("admin role cannot be empty")
	}

	p := &Policy{
		adminRole: adminRole,
		grants:    make(map[string][]string, len(grants)),
	}
	for role, perms := range grants {
		if strings.TrimSpace(role) == "" {
			return nil, errors.New("role name empty")
		}
		for _, perm := range perms {
			if strings.TrimSpace(perm) == "" {
				return nil, errors.New("permission name cannot be empty")
			}
		}
		p.grants[role] = slices.Clone(perms)
	}
	return p, nil
}

// AdminRole returns the configured administrative role.
func (p *Policy) AdminRole() string {
	if p == nil {
		return DefaultAdminRole
	}
	return p.adminRole
}

// IsAdmin reports whether role is the administrative role.
func (p *Policy) IsAdmin(role string) bool {
	return role != "" && role == p.AdminRole()
}

// Allows reports whether a user with role and perms holds name. The admin
// role holds every permission.
func (p *Policy) Allows(role string, perms []string, name string) bool {
	if name == "" {
		return false
	}
	if p.IsAdmin(role) {
		return true
	}
	if slices.Contains(perms, name) {
		return true
	}
	if p == nil {
		return false
	}
	return slices.Contains(p.grants[role], name)
}
