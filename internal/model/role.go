package model

import "fmt"

// Role is the kind of account a user signed up as.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

// Roles lists every role in display order.
var Roles = []Role{RoleOwner, RoleTeacher, RoleParent}

// ParseRole converts raw input into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleTeacher, RoleParent:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// NeedsStudio reports whether sign-up for this role must name an existing studio.
func (r Role) NeedsStudio() bool {
	switch r {
	case RoleOwner:
		return false
	case RoleTeacher, RoleParent:
		return true
	}
	panic(fmt.Sprintf("unhandled role %q", string(r)))
}

// ProfileTable is the table holding the role's profile rows.
func (r Role) ProfileTable() string {
	switch r {
	case RoleOwner:
		return "owners"
	case RoleTeacher:
		return "teachers"
	case RoleParent:
		return "parents"
	}
	panic(fmt.Sprintf("unhandled role %q", string(r)))
}
