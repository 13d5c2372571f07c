package auth

import (
	"context"
	"errors"

	"github.com/pace-platform/pace-admin/internal/role"
)

var (
	ErrIncompleteSession = errors.New("session needs both a token and a role")
	ErrNoToken           = errors.New("not authenticated")
)

// UserProfile is the account record returned at login. Admin accounts carry
// the university they administer; super admin accounts leave it empty.
type UserProfile struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	UniversityID string `json:"universityId,omitempty"`
	Status       string `json:"status,omitempty"`
	Role         string `json:"role,omitempty"`
}

// Session is the current identity. The zero value is the logged out session.
type Session struct {
	Token string
	Role  role.Role
	User  *UserProfile
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.Role != role.None
}

func (s Session) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}

func (s Session) UniversityID() string {
	if s.User == nil {
		return ""
	}
	return s.User.UniversityID
}

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Grant is what a successful login hands back
type Grant struct {
	Token string
	Role  role.Role
	User  *UserProfile
}

type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Grant, error)
}
