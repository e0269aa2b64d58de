// ABOUTME: Route authorizer: pure allow/redirect decisions from session state and required role
// ABOUTME: Also holds the application route table and per-role landing pages

package route

import (
	"sort"
	"strings"

	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/session"
)

// Well-known paths
const (
	Root     = "/"
	Login    = "/login"
	Register = "/register"

	AdminHome        = "/admin"
	StudentIndex     = "/student"
	StudentDashboard = "/student/dashboard"
)

// Decision is the outcome of a guard evaluation. Redirect is set only when
// Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

// Allowed is the Decision that renders the requested path
var Allowed = Decision{Allow: true}

// RedirectTo builds a redirect Decision
func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

func (d Decision) String() string {
	if d.Allow {
		return "allow"
	}
	return "redirect " + d.Redirect
}

// DefaultPath is the landing page for a role
func DefaultPath(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return AdminHome
	case models.RoleStudent:
		return StudentDashboard
	default:
		return Login
	}
}

// Authorize evaluates a guard. required == "" means any authenticated user.
// A role mismatch redirects to the user's own landing page, except when the
// user is already there, which avoids a redirect loop.
func Authorize(s session.Snapshot, required models.Role, path string) Decision {
	if !s.IsAuthenticated || s.User == nil {
		return RedirectTo(Login)
	}
	if required != "" && s.User.Role != required {
		home := DefaultPath(s.User.Role)
		if path != home {
			return RedirectTo(home)
		}
		return Allowed
	}
	return Allowed
}

// RootRedirect resolves "/" without side effects
func RootRedirect(s session.Snapshot) Decision {
	if !s.IsAuthenticated || s.User == nil {
		return RedirectTo(Login)
	}
	return RedirectTo(DefaultPath(s.User.Role))
}

// Access is what a route demands
type Access int

const (
	// Public routes render for anyone
	Public Access = iota
	// Guarded routes require an authenticated user with Role
	Guarded
	// Redirect routes always forward to Target
	Redirect
)

// Route is one entry in the application route table
type Route struct {
	Path   string
	Title  string
	Access Access
	Role   models.Role
	Target string
}

var table = map[string]Route{
	Login:    {Path: Login, Title: "Sign in", Access: Public},
	Register: {Path: Register, Title: "Create account", Access: Public},

	AdminHome:             {Path: AdminHome, Title: "Admin dashboard", Access: Guarded, Role: models.RoleAdmin},
	"/admin/users":        {Path: "/admin/users", Title: "Users", Access: Guarded, Role: models.RoleAdmin},
	"/admin/users/create": {Path: "/admin/users/create", Title: "Create user", Access: Guarded, Role: models.RoleAdmin},
	"/admin/equipment":    {Path: "/admin/equipment", Title: "Equipment", Access: Guarded, Role: models.RoleAdmin},
	"/admin/requests":     {Path: "/admin/requests", Title: "Borrow requests", Access: Guarded, Role: models.RoleAdmin},
	"/admin/statistics":   {Path: "/admin/statistics", Title: "Statistics", Access: Guarded, Role: models.RoleAdmin},
	"/admin/settings":     {Path: "/admin/settings", Title: "Settings", Access: Guarded, Role: models.RoleAdmin},

	StudentIndex:         {Path: StudentIndex, Access: Redirect, Target: StudentDashboard},
	StudentDashboard:     {Path: StudentDashboard, Title: "Dashboard", Access: Guarded, Role: models.RoleStudent},
	"/student/equipment": {Path: "/student/equipment", Title: "Browse equipment", Access: Guarded, Role: models.RoleStudent},
	"/student/history":   {Path: "/student/history", Title: "Borrow history", Access: Guarded, Role: models.RoleStudent},
}

// Lookup returns the table entry for path
func Lookup(path string) (Route, bool) {
	r, ok := table[normalize(path)]
	return r, ok
}

// Routes returns every table entry sorted by path
func Routes() []Route {
	out := make([]Route, 0, len(table))
	for _, r := range table {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ForRole lists the guarded routes a role may render, sorted by path
func ForRole(role models.Role) []Route {
	var out []Route
	for _, r := range Routes() {
		if r.Access == Guarded && r.Role == role {
			out = append(out, r)
		}
	}
	return out
}

// Resolve applies the route table to a navigation request. Unknown paths
// are sent to the root, which then resolves by role.
func Resolve(s session.Snapshot, path string) Decision {
	path = normalize(path)
	if path == Root {
		return RootRedirect(s)
	}

	r, ok := table[path]
	if !ok {
		return RedirectTo(Root)
	}

	switch r.Access {
	case Public:
		return Allowed
	case Redirect:
		return RedirectTo(r.Target)
	default:
		return Authorize(s, r.Role, path)
	}
}

// Follow resolves path and follows redirects until a path is allowed,
// returning the final path. The hop limit stops a malformed table from
// looping forever.
func Follow(s session.Snapshot, path string) (string, Decision) {
	const maxHops = 8
	current := normalize(path)
	for i := 0; i < maxHops; i++ {
		d := Resolve(s, current)
		if d.Allow {
			return current, d
		}
		current = d.Redirect
	}
	return Login, RedirectTo(Login)
}

func normalize(path string) string {
	if path == "" {
		return Root
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = Root
		}
	}
	return path
}
