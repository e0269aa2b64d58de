// ABOUTME: Tests for the session state container
// ABOUTME: Verifies credential validation, logout, hydration and observer ordering

package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/store"
)

func student() models.User {
	return models.User{ID: "u1", FullName: "A", Email: "a@x.com", Role: models.RoleStudent}
}

func admin() models.User {
	return models.User{ID: "a1", FullName: "Root", Email: "root@x.com", Role: models.RoleAdmin}
}

func newContainer() (*Container, *store.SessionStore) {
	s := store.New(store.NewMemoryBackend())
	return New(s), s
}

func TestSetCredentialsValidRoles(t *testing.T) {
	for _, u := range []models.User{student(), admin()} {
		c, s := newContainer()

		if !c.SetCredentials(u, "t1") {
			t.Fatalf("expected %s credentials to be accepted", u.Role)
		}
		if !c.IsAuthenticated() {
			t.Error("expected authenticated after SetCredentials")
		}
		if role, ok := c.UserRole(); !ok || role != u.Role {
			t.Errorf("UserRole() = %q, %v; want %q", role, ok, u.Role)
		}
		if c.Token() != "t1" {
			t.Errorf("expected token t1, got %q", c.Token())
		}

		rec, ok := s.Load()
		if !ok {
			t.Fatal("expected credentials to be persisted")
		}
		if rec.Token != "t1" || !reflect.DeepEqual(rec.User, u) {
			t.Errorf("persisted %+v, want token t1 and %+v", rec, u)
		}
	}
}

func TestSetCredentialsRejectsInvalidRole(t *testing.T) {
	for _, role := range []models.Role{"", "lecturer", "ADMIN"} {
		c, s := newContainer()
		c.SetCredentials(admin(), "t0")
		before := c.Snapshot()

		u := student()
		u.Role = role
		if c.SetCredentials(u, "t1") {
			t.Errorf("expected role %q to be rejected", role)
		}

		if after := c.Snapshot(); !reflect.DeepEqual(before, after) {
			t.Errorf("role %q: state changed from %+v to %+v", role, before, after)
		}
		if rec, _ := s.Load(); rec.Token != "t0" {
			t.Errorf("role %q: persisted token changed to %q", role, rec.Token)
		}
	}
}

func TestSetCredentialsRejectedOnEmptyContainer(t *testing.T) {
	c, _ := newContainer()
	u := student()
	u.Role = "guest"

	c.SetCredentials(u, "t1")

	if c.IsAuthenticated() || c.CurrentUser() != nil || c.Token() != "" {
		t.Error("expected empty container to stay empty")
	}
}

func TestLogout(t *testing.T) {
	c, s := newContainer()
	c.SetCredentials(student(), "t1")

	c.Logout()

	if c.IsAuthenticated() {
		t.Error("expected unauthenticated after logout")
	}
	if c.CurrentUser() != nil {
		t.Error("expected no user after logout")
	}
	if c.Token() != "" {
		t.Error("expected no token after logout")
	}
	if _, ok := c.UserRole(); ok {
		t.Error("expected no role after logout")
	}
	if _, ok := s.Load(); ok {
		t.Error("expected storage cleared after logout")
	}

	// Idempotent
	c.Logout()
	if c.IsAuthenticated() {
		t.Error("expected second logout to keep state empty")
	}
}

func TestHydrate(t *testing.T) {
	s := store.New(store.NewMemoryBackend())
	if err := s.Save("t1", student()); err != nil {
		t.Fatal(err)
	}

	c := New(s)
	snap := c.Hydrate()

	if !snap.IsAuthenticated || snap.Token != "t1" || snap.Role() != models.RoleStudent {
		t.Errorf("unexpected hydrated snapshot %+v", snap)
	}
	if !c.IsAuthenticated() {
		t.Error("expected container to be authenticated after hydrate")
	}
}

func TestHydrateEmpty(t *testing.T) {
	c, _ := newContainer()
	if snap := c.Hydrate(); snap.IsAuthenticated || snap.User != nil {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c, _ := newContainer()
	c.SetCredentials(student(), "t1")

	snap := c.Snapshot()
	snap.User.Role = models.RoleAdmin
	u := c.CurrentUser()
	u.FullName = "changed"

	if role, _ := c.UserRole(); role != models.RoleStudent {
		t.Error("mutating a snapshot changed container state")
	}
	if c.CurrentUser().FullName != "A" {
		t.Error("mutating CurrentUser result changed container state")
	}
}

func TestObserversSeeNewStateSynchronously(t *testing.T) {
	c, _ := newContainer()

	var events []Event
	var sawAuthenticated bool
	unsubscribe := c.Subscribe(func(e Event, snap Snapshot) {
		events = append(events, e)
		if e == EventCredentialsSet {
			// Reading back through the container must not deadlock
			sawAuthenticated = c.IsAuthenticated() && snap.IsAuthenticated
		}
	})

	c.SetCredentials(student(), "t1")
	c.Logout()

	want := []Event{EventCredentialsSet, EventLoggedOut}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if !sawAuthenticated {
		t.Error("expected observer to see authenticated state")
	}

	unsubscribe()
	c.SetCredentials(student(), "t2")
	if len(events) != 2 {
		t.Errorf("expected no events after unsubscribe, got %v", events)
	}
}

func TestRejectedCredentialsDoNotNotify(t *testing.T) {
	c, _ := newContainer()
	called := false
	c.Subscribe(func(Event, Snapshot) { called = true })

	u := student()
	u.Role = ""
	c.SetCredentials(u, "t1")

	if called {
		t.Error("expected no notification for rejected credentials")
	}
}

type failingPersister struct{}

func (failingPersister) Save(string, models.User) error { return errors.New("disk full") }
func (failingPersister) Load() (store.Record, bool)     { return store.Record{}, false }
func (failingPersister) Clear() error                   { return errors.New("disk full") }

func TestPersistenceFailureKeepsMemoryTransition(t *testing.T) {
	c := New(failingPersister{})

	if !c.SetCredentials(student(), "t1") {
		t.Fatal("expected credentials accepted despite storage failure")
	}
	if !c.IsAuthenticated() {
		t.Error("expected in-memory session despite storage failure")
	}

	c.Logout()
	if c.IsAuthenticated() {
		t.Error("expected logout despite storage failure")
	}
}
