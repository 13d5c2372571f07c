package accesscontrol

import (
	"net/url"
	"strings"

	"github.com/pace-platform/pace-admin/internal/auth"
	"github.com/pace-platform/pace-admin/internal/role"
	"github.com/pace-platform/pace-admin/internal/utils"
)

const RedirectParam = "redir"

type Result int

const (
	Allow Result = iota
	// RedirectLogin: nobody is logged in
	RedirectLogin
	// RedirectForbidden: logged in, but with a role the route doesn't admit
	RedirectForbidden
)

func (r Result) String() string {
	switch r {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "login"
	case RedirectForbidden:
		return "forbidden"
	}
	return "unknown"
}

type Decision struct {
	Result Result
	// Location is where to send the browser, empty when allowed
	Location string
}

func (d Decision) Allowed() bool {
	return d.Result == Allow
}

// Policy says where rejected navigations go. The zero value sends both kinds
// of rejection to "/".
type Policy struct {
	LoginPath string
	// ForbiddenPath defaults to LoginPath
	ForbiddenPath string
}

func (p Policy) loginPath() string {
	if p.LoginPath == "" {
		return "/"
	}
	return p.LoginPath
}

func (p Policy) forbiddenPath() string {
	if p.ForbiddenPath == "" {
		return p.loginPath()
	}
	return p.ForbiddenPath
}

// Evaluate is a pure function of the session, the roles the route admits and
// the location that was asked for
func (p Policy) Evaluate(s auth.Session, allowed role.Set, requested string) Decision {
	if !s.Authenticated() {
		loc := p.loginPath()
		if requested != "" && utils.IsLocalPath(requested) {
			loc += "?" + url.Values{RedirectParam: {requested}}.Encode()
		}
		return Decision{Result: RedirectLogin, Location: loc}
	}

	if !allowed.Contains(s.Role) {
		return Decision{Result: RedirectForbidden, Location: p.forbiddenPath()}
	}

	return Decision{Result: Allow}
}

// VerifyRedirectURL reports whether a post-login return location may be
// followed by a user with role r: it must be local and inside r's subtree
func VerifyRedirectURL(r role.Role, redirect string) bool {
	if redirect == "" || !utils.IsLocalPath(redirect) {
		return false
	}
	subtree := r.Subtree()
	if subtree == "" {
		return false
	}
	path := redirect
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return path == subtree || strings.HasPrefix(path, subtree+"/")
}

// PostLoginLocation picks where to go after logging in
func PostLoginLocation(r role.Role, redirect string) string {
	if VerifyRedirectURL(r, redirect) {
		return redirect
	}
	return r.Home()
}
