// ABOUTME: Tests for the route authorizer and route table
// ABOUTME: Table-driven checks for guards, root resolution and redirect termination

package route

import (
	"reflect"
	"testing"

	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/session"
)

func snap(role models.Role) session.Snapshot {
	if role == "" {
		return session.Snapshot{}
	}
	return session.Snapshot{
		Token:           "t",
		User:            &models.User{ID: "u", FullName: "U", Email: "u@x.com", Role: role},
		IsAuthenticated: true,
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		session  session.Snapshot
		required models.Role
		path     string
		want     Decision
	}{
		{"anonymous", snap(""), models.RoleAdmin, "/admin", RedirectTo(Login)},
		{"anonymous without role", snap(""), "", "/anything", RedirectTo(Login)},
		{"authenticated flag without user", session.Snapshot{IsAuthenticated: true}, "", "/x", RedirectTo(Login)},
		{"user without authenticated flag", session.Snapshot{User: snap(models.RoleAdmin).User}, "", "/x", RedirectTo(Login)},
		{"admin on admin route", snap(models.RoleAdmin), models.RoleAdmin, "/admin/users", Allowed},
		{"student on student route", snap(models.RoleStudent), models.RoleStudent, "/student/history", Allowed},
		{"student on admin route", snap(models.RoleStudent), models.RoleAdmin, "/admin", RedirectTo(StudentDashboard)},
		{"admin on student route", snap(models.RoleAdmin), models.RoleStudent, "/student/dashboard", RedirectTo(AdminHome)},
		{"mismatch already home", snap(models.RoleStudent), models.RoleAdmin, StudentDashboard, Allowed},
		{"no role required", snap(models.RoleStudent), "", "/anything", Allowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.session, tt.required, tt.path); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizeIsPure(t *testing.T) {
	s := snap(models.RoleStudent)
	before := *s.User

	first := Authorize(s, models.RoleAdmin, "/admin")
	for i := 0; i < 10; i++ {
		if got := Authorize(s, models.RoleAdmin, "/admin"); got != first {
			t.Fatalf("call %d returned %v, first returned %v", i, got, first)
		}
	}
	if !reflect.DeepEqual(before, *s.User) {
		t.Error("Authorize mutated the session")
	}
}

func TestRedirectNeverLoops(t *testing.T) {
	// Following a mismatch redirect must land on an allowed page in one hop
	for _, role := range models.Roles {
		s := snap(role)
		for _, r := range Routes() {
			if r.Access != Guarded {
				continue
			}
			d := Authorize(s, r.Role, r.Path)
			if d.Allow {
				continue
			}
			if next := Authorize(s, r.Role, d.Redirect); !next.Allow {
				t.Errorf("%s on %s: redirect to %s is not allowed (%v)", role, r.Path, d.Redirect, next)
			}
		}
	}
}

func TestDefaultPath(t *testing.T) {
	tests := []struct {
		role models.Role
		want string
	}{
		{models.RoleAdmin, "/admin"},
		{models.RoleStudent, "/student/dashboard"},
		{"guest", "/login"},
	}
	for _, tt := range tests {
		if got := DefaultPath(tt.role); got != tt.want {
			t.Errorf("DefaultPath(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestRootRedirect(t *testing.T) {
	tests := []struct {
		name string
		s    session.Snapshot
		want Decision
	}{
		{"anonymous", snap(""), RedirectTo(Login)},
		{"admin", snap(models.RoleAdmin), RedirectTo(AdminHome)},
		{"student", snap(models.RoleStudent), RedirectTo(StudentDashboard)},
	}
	for _, tt := range tests {
		if got := RootRedirect(tt.s); got != tt.want {
			t.Errorf("%s: RootRedirect() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		role models.Role
		path string
		want Decision
	}{
		{"login is public", "", "/login", Allowed},
		{"register is public", "", "/register", Allowed},
		{"login while signed in", models.RoleAdmin, "/login", Allowed},
		{"root anonymous", "", "/", RedirectTo(Login)},
		{"root admin", models.RoleAdmin, "/", RedirectTo(AdminHome)},
		{"empty path is root", models.RoleStudent, "", RedirectTo(StudentDashboard)},
		{"student index", models.RoleStudent, "/student", RedirectTo(StudentDashboard)},
		{"trailing slash", models.RoleAdmin, "/admin/settings/", Allowed},
		{"query string", models.RoleAdmin, "/admin/requests?status=pending", Allowed},
		{"unknown path", models.RoleAdmin, "/nope", RedirectTo(Root)},
		{"admin create user", models.RoleAdmin, "/admin/users/create", Allowed},
		{"student on admin statistics", models.RoleStudent, "/admin/statistics", RedirectTo(StudentDashboard)},
		{"anonymous on student equipment", "", "/student/equipment", RedirectTo(Login)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(snap(tt.role), tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFollow(t *testing.T) {
	tests := []struct {
		role models.Role
		path string
		want string
	}{
		{"", "/admin", "/login"},
		{models.RoleStudent, "/admin", "/student/dashboard"},
		{models.RoleStudent, "/", "/student/dashboard"},
		{models.RoleAdmin, "/garbage", "/admin"},
		{"", "/garbage", "/login"},
		{models.RoleStudent, "/student", "/student/dashboard"},
	}
	for _, tt := range tests {
		got, d := Follow(snap(tt.role), tt.path)
		if got != tt.want || !d.Allow {
			t.Errorf("Follow(%q as %q) = %q %v, want %q allowed", tt.path, tt.role, got, d, tt.want)
		}
	}
}

func TestForRole(t *testing.T) {
	admin := ForRole(models.RoleAdmin)
	if len(admin) != 7 {
		t.Errorf("expected 7 admin routes, got %d", len(admin))
	}
	student := ForRole(models.RoleStudent)
	if len(student) != 3 {
		t.Errorf("expected 3 student routes, got %d", len(student))
	}
	for _, r := range student {
		if r.Role != models.RoleStudent {
			t.Errorf("unexpected route %+v in student list", r)
		}
	}
}

func TestLookup(t *testing.T) {
	if r, ok := Lookup("/admin/equipment/"); !ok || r.Title != "Equipment" {
		t.Errorf("Lookup() = %+v, %v", r, ok)
	}
	if _, ok := Lookup("/nope"); ok {
		t.Error("expected unknown path to miss")
	}
}
