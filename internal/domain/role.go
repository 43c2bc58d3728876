package domain

import "strings"

// Role enumerates the institutional permission groups carried in session tokens.
type Role uint8

const (
	RoleUnrecognized Role = iota
	RoleAdmin
	RoleTeacher
	RoleStudent
	RoleEmployee
	RoleLibrarian
	RoleTechnician
	RoleHRAnalyst
)

// rolePrefix is the Spring Security authority prefix some backends put on roles.
const rolePrefix = "ROLE_"

var roleNames = map[Role]string{
	RoleUnrecognized: "UNRECOGNIZED",
	RoleAdmin:        "ADMIN",
	RoleTeacher:      "TEACHER",
	RoleStudent:      "STUDENT",
	RoleEmployee:     "EMPLOYEE",
	RoleLibrarian:    "LIBRARIAN",
	RoleTechnician:   "TECHNICIAN",
	RoleHRAnalyst:    "HR_ANALYST",
}

var rolesByName = func() map[string]Role {
	m := make(map[string]Role, len(roleNames))
	for role, name := range roleNames {
		if role == RoleUnrecognized {
			continue
		}
		m[name] = role
	}
	return m
}()

// AllRoles lists every recognized role in declaration order.
var AllRoles = []Role{
	RoleAdmin,
	RoleTeacher,
	RoleStudent,
	RoleEmployee,
	RoleLibrarian,
	RoleTechnician,
	RoleHRAnalyst,
}

// ParseRole maps a backend role string onto the closed enumeration.
// Unknown values yield RoleUnrecognized instead of an error.
func ParseRole(s string) Role {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, rolePrefix)
	if role, ok := rolesByName[name]; ok {
		return role
	}
	return RoleUnrecognized
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return roleNames[RoleUnrecognized]
}

// Recognized reports whether r belongs to the closed enumeration.
func (r Role) Recognized() bool {
	return r != RoleUnrecognized && r <= RoleHRAnalyst
}

// RoleSet is an ordered, duplicate-free set of roles.
type RoleSet []Role

// NewRoleSet keeps the first occurrence of every role.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, 0, len(roles))
	for _, role := range roles {
		if !set.Has(role) {
			set = append(set, role)
		}
	}
	return set
}

// ParseRoleSet parses raw role strings, collapsing duplicates.
func ParseRoleSet(raw []string) RoleSet {
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		roles = append(roles, ParseRole(s))
	}
	return NewRoleSet(roles...)
}

func (s RoleSet) Has(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Intersects reports whether both sets share a recognized role.
// RoleUnrecognized never matches, so opaque backend roles fail every check.
func (s RoleSet) Intersects(other RoleSet) bool {
	for _, r := range s {
		if !r.Recognized() {
			continue
		}
		if other.Has(r) {
			return true
		}
	}
	return false
}

func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, r.String())
	}
	return out
}
