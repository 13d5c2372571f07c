package role

import (
	"errors"
	"fmt"
	"strings"
)

// Role is an account role issued by the PACE backend at login.
type Role uint8

const (
	None Role = iota
	Admin
	SuperAdmin
)

var ErrUnknownRole = errors.New("unknown role")

// Parse maps the backend's role string onto a Role. Matching ignores case
// and surrounding whitespace; "SUPERADMIN" is accepted as an alias.
func Parse(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN":
		return Admin, nil
	case "SUPER_ADMIN", "SUPERADMIN":
		return SuperAdmin, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) String() string {
	switch r {
	case Admin:
		return "ADMIN"
	case SuperAdmin:
		return "SUPER_ADMIN"
	case None:
		return ""
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Home is the landing route for a logged in user with this role.
func (r Role) Home() string {
	switch r {
	case Admin:
		return "/admin/dashboard"
	case SuperAdmin:
		return "/superadmin/dashboard"
	case None:
	}
	return "/"
}

// Subtree is the route prefix owned by the role.
func (r Role) Subtree() string {
	switch r {
	case Admin:
		return "/admin"
	case SuperAdmin:
		return "/superadmin"
	case None:
	}
	return ""
}

// Set is a set of roles, used to declare who may enter a route subtree.
type Set uint8

func NewSet(roles ...Role) Set {
	var s Set
	for _, r := range roles {
		if r == None {
			continue
		}
		s |= 1 << r
	}
	return s
}

func (s Set) Contains(r Role) bool {
	if r == None {
		return false
	}
	return s&(1<<r) != 0
}

func (s Set) String() string {
	names := make([]string, 0, 2)
	for _, r := range []Role{Admin, SuperAdmin} {
		if s.Contains(r) {
			names = append(names, r.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}
