package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pace-platform/pace-admin/internal/auth"
	"github.com/pace-platform/pace-admin/internal/role"
)

func TestEvaluate(t *testing.T) {
	admin := auth.Session{Token: "T", Role: role.Admin}
	superAdmin := auth.Session{Token: "T", Role: role.SuperAdmin}
	anonymous := auth.Session{}
	tokenOnly := auth.Session{Token: "T"}

	adminOnly := role.NewSet(role.Admin)
	both := role.NewSet(role.Admin, role.SuperAdmin)

	tests := []struct {
		name      string
		policy    Policy
		session   auth.Session
		allowed   role.Set
		requested string
		want      Decision
	}{
		{
			name:      "anonymous goes to login and keeps the requested location",
			session:   anonymous,
			allowed:   adminOnly,
			requested: "/admin/courses",
			want:      Decision{Result: RedirectLogin, Location: "/?redir=%2Fadmin%2Fcourses"},
		},
		{
			name:      "non-local requested location is dropped",
			session:   anonymous,
			allowed:   adminOnly,
			requested: "//evil.example",
			want:      Decision{Result: RedirectLogin, Location: "/"},
		},
		{
			name:      "token without role is not a session",
			session:   tokenOnly,
			allowed:   both,
			requested: "",
			want:      Decision{Result: RedirectLogin, Location: "/"},
		},
		{
			name:      "wrong role goes to login by default",
			session:   superAdmin,
			allowed:   adminOnly,
			requested: "/admin/courses",
			want:      Decision{Result: RedirectForbidden, Location: "/"},
		},
		{
			name:      "wrong role goes to the configured forbidden location",
			policy:    Policy{LoginPath: "/", ForbiddenPath: "/forbidden"},
			session:   superAdmin,
			allowed:   adminOnly,
			requested: "/admin/courses",
			want:      Decision{Result: RedirectForbidden, Location: "/forbidden"},
		},
		{
			name:      "matching role is allowed",
			session:   admin,
			allowed:   adminOnly,
			requested: "/admin/courses",
			want:      Decision{Result: Allow},
		},
		{
			name:      "role in a wider set is allowed",
			session:   superAdmin,
			allowed:   both,
			requested: "/shared",
			want:      Decision{Result: Allow},
		},
		{
			name:    "empty allowed set admits nobody",
			session: admin,
			allowed: role.NewSet(),
			want:    Decision{Result: RedirectForbidden, Location: "/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Evaluate(tt.session, tt.allowed, tt.requested)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Result == Allow, got.Allowed())
		})
	}
}

func TestVerifyRedirectURL(t *testing.T) {
	assert.True(t, VerifyRedirectURL(role.Admin, "/admin/courses"))
	assert.True(t, VerifyRedirectURL(role.Admin, "/admin"))
	assert.True(t, VerifyRedirectURL(role.Admin, "/admin/courses?page=2"))
	assert.False(t, VerifyRedirectURL(role.Admin, "/administrator"))
	assert.False(t, VerifyRedirectURL(role.Admin, "/superadmin/accounts"))
	assert.False(t, VerifyRedirectURL(role.SuperAdmin, "https://evil.example/superadmin"))
	assert.False(t, VerifyRedirectURL(role.None, "/admin"))
	assert.False(t, VerifyRedirectURL(role.Admin, ""))
}

func TestPostLoginLocation(t *testing.T) {
	assert.Equal(t, "/admin/reports", PostLoginLocation(role.Admin, "/admin/reports"))
	assert.Equal(t, "/admin/dashboard", PostLoginLocation(role.Admin, "/superadmin/records"))
	assert.Equal(t, "/superadmin/dashboard", PostLoginLocation(role.SuperAdmin, ""))
}
