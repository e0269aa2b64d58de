// ABOUTME: Session state container: the single in-memory owner of identity
// ABOUTME: Validates credentials, mirrors transitions to durable storage, notifies observers synchronously

package session

import (
	"log/slog"
	"sync"

	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/store"
)

// Persister is the durable shadow of the session.
// *store.SessionStore satisfies it.
type Persister interface {
	Save(token string, user models.User) error
	Load() (store.Record, bool)
	Clear() error
}

// Snapshot is an immutable view of the session at one instant
type Snapshot struct {
	Token           string
	User            *models.User
	IsAuthenticated bool
}

// Role returns the user's role, or "" when there is no user
func (s Snapshot) Role() models.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Event describes a session transition
type Event int

const (
	// EventCredentialsSet follows a successful SetCredentials
	EventCredentialsSet Event = iota
	// EventLoggedOut follows Logout
	EventLoggedOut
	// EventHydrated follows Hydrate
	EventHydrated
)

func (e Event) String() string {
	switch e {
	case EventCredentialsSet:
		return "credentials_set"
	case EventLoggedOut:
		return "logged_out"
	case EventHydrated:
		return "hydrated"
	default:
		return "unknown"
	}
}

// Container owns the in-memory session. It is the only writer.
type Container struct {
	// writeMu orders transitions so storage matches memory
	writeMu   sync.Mutex
	mu        sync.RWMutex
	state     Snapshot
	persister Persister

	obsMu     sync.Mutex
	observers map[int]func(Event, Snapshot)
	nextObsID int
}

// New creates an empty, unauthenticated container
func New(p Persister) *Container {
	return &Container{
		persister: p,
		observers: make(map[int]func(Event, Snapshot)),
	}
}

// Hydrate loads the persisted session without contacting the backend.
// The result is optimistic: the bootstrapper confirms it later.
func (c *Container) Hydrate() Snapshot {
	c.writeMu.Lock()
	rec, ok := c.persister.Load()

	c.mu.Lock()
	if ok {
		user := rec.User
		c.state = Snapshot{Token: rec.Token, User: &user, IsAuthenticated: true}
		slog.Debug("Session restored from storage", "user_id", user.ID, "role", user.Role)
	} else {
		c.state = Snapshot{}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.writeMu.Unlock()

	c.notify(EventHydrated, snap)
	return snap
}

// SetCredentials installs a user and token. A user whose role is outside the
// closed enum is rejected: state is left untouched and false is returned.
func (c *Container) SetCredentials(user models.User, token string) bool {
	if !user.Role.Valid() {
		slog.Warn("Rejected credentials with invalid role",
			"user_id", user.ID,
			"role", string(user.Role),
		)
		return false
	}

	c.writeMu.Lock()
	c.mu.Lock()
	u := user
	c.state = Snapshot{Token: token, User: &u, IsAuthenticated: true}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.persister.Save(token, user); err != nil {
		slog.Warn("Failed to persist session", "user_id", user.ID, "error", err)
	}
	c.writeMu.Unlock()

	slog.Info("Session credentials set", "user_id", user.ID, "role", user.Role)
	c.notify(EventCredentialsSet, snap)
	return true
}

// Logout resets the session and clears durable storage. Idempotent.
func (c *Container) Logout() {
	c.writeMu.Lock()
	c.mu.Lock()
	c.state = Snapshot{}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.persister.Clear(); err != nil {
		slog.Warn("Failed to clear persisted session", "error", err)
	}
	c.writeMu.Unlock()

	slog.Info("Session logged out")
	c.notify(EventLoggedOut, snap)
}

// Snapshot returns a copy of the current state
func (c *Container) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// CurrentUser returns a copy of the current user, or nil
func (c *Container) CurrentUser() *models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.User.Clone()
}

// IsAuthenticated reports whether a validated user and token are present
func (c *Container) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.IsAuthenticated
}

// UserRole returns the current user's role and whether a user is present
func (c *Container) UserRole() (models.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.User == nil {
		return "", false
	}
	return c.state.User.Role, true
}

// Token returns the in-memory bearer token
func (c *Container) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Token
}

// Subscribe registers fn to run after every transition. Observers run
// synchronously, outside the state lock, before the mutating call returns.
func (c *Container) Subscribe(fn func(Event, Snapshot)) (unsubscribe func()) {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Container) notify(e Event, snap Snapshot) {
	c.obsMu.Lock()
	fns := make([]func(Event, Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(e, snap)
	}
}

// snapshotLocked copies state. Must be called while holding c.mu.
func (c *Container) snapshotLocked() Snapshot {
	return Snapshot{
		Token:           c.state.Token,
		User:            c.state.User.Clone(),
		IsAuthenticated: c.state.IsAuthenticated,
	}
}
