package api

import (
	"context"
	"net/http"

	"github.com/pace-platform/pace-admin/internal/apiclient"
	"github.com/pace-platform/pace-admin/internal/auth"
	"github.com/pace-platform/pace-admin/internal/role"
)

type loginResponse struct {
	JWTToken string            `json:"jwtToken"`
	Role     string            `json:"role"`
	Username string            `json:"username"`
	User     *auth.UserProfile `json:"user,omitempty"`
}

// Login exchanges credentials for a token. Storing the result is the auth
// manager's job, see Authenticate.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (*auth.Grant, error) {
	if err := c.check(creds); err != nil {
		return nil, err
	}

	res := new(loginResponse)
	err := c.call(ctx, apiclient.Request{
		Op:     "Login",
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		JSON:   creds,
	}, res)
	if err != nil {
		return nil, err
	}

	if res.JWTToken == "" {
		c.logger.Warnf("Login: backend answered without a token")
		return nil, &apiclient.Error{Op: "Login", Status: http.StatusOK, Message: "Login failed"}
	}

	r, err := role.Parse(res.Role)
	if err != nil {
		c.logger.Warnf("Login: %s signed in with role %q which has no console access", creds.Email, res.Role)
		return nil, &apiclient.Error{
			Op:      "Login",
			Status:  http.StatusOK,
			Message: "This account cannot use the admin console",
			Cause:   err,
		}
	}

	user := res.User
	if user == nil {
		user = &auth.UserProfile{}
	}
	if user.Username == "" {
		user.Username = res.Username
	}
	if user.Email == "" {
		user.Email = creds.Email
	}
	if user.Role == "" {
		user.Role = r.String()
	}

	return &auth.Grant{Token: res.JWTToken, Role: r, User: user}, nil
}

// Authenticate makes Client an auth.Authenticator
func (c *Client) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Grant, error) {
	return c.Login(ctx, creds)
}

var _ auth.Authenticator = (*Client)(nil)
