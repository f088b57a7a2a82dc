package session

import (
	"github.com/trezcool/practicum/core/user"
)

// LoginPath is where unauthenticated clients are sent.
const LoginPath = "/login"

var dashboards = map[user.Role]string{
	user.RoleStudent:    "/student",
	user.RoleInstructor: "/instructor",
	user.RoleSupervisor: "/supervisor",
	user.RoleAdmin:      "/admin",
}

// Navigator is the routing surface of the client.
type Navigator interface {
	Navigate(path string)
	CurrentPath() string
}

// Dashboard returns the landing path of role.
func Dashboard(role user.Role) string {
	if path, ok := dashboards[role]; ok {
		return path
	}
	return LoginPath
}

// Guard gates routes by role.
type Guard struct {
	sess *Context
	nav  Navigator
}

func NewGuard(sess *Context, nav Navigator) *Guard {
	return &Guard{sess: sess, nav: nav}
}

// Require reports whether the current identity has one of roles (any role when none given).
// Otherwise it redirects: to LoginPath when unauthenticated, to the user dashboard when the role is not allowed.
func (g *Guard) Require(roles ...user.Role) bool {
	usr, ok := g.sess.User()
	if ok && usr.HasAnyRole(roles...) {
		return true
	}

	target := LoginPath
	if ok {
		target = Dashboard(usr.Role)
	}
	if g.nav.CurrentPath() != target {
		g.nav.Navigate(target)
	}
	return false
}

// Home returns the dashboard of the current identity, or LoginPath.
func (g *Guard) Home() string {
	usr, ok := g.sess.User()
	if !ok {
		return LoginPath
	}
	return Dashboard(usr.Role)
}
