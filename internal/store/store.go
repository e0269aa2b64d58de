// ABOUTME: Persisted session store keeping the bearer token and user across restarts
// ABOUTME: Two independent keys over a pluggable key/value backend with validation on load

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/markalston/equiplend/internal/models"
)

// Storage keys. They are written and removed independently.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Backend is a durable string key/value medium
type Backend interface {
	// Get returns the value for key and whether it exists
	Get(key string) (string, bool, error)
	// Set stores value under key
	Set(key, value string) error
	// Delete removes the given keys; missing keys are not an error
	Delete(keys ...string) error
	// Close releases the medium
	Close() error
}

// Record is a session read back from durable storage
type Record struct {
	Token string
	User  models.User
}

// SessionStore persists the token and serialized user
type SessionStore struct {
	backend Backend
}

// New creates a session store over the given backend
func New(b Backend) *SessionStore {
	return &SessionStore{backend: b}
}

// Save writes both values. The user is written first so a torn write
// leaves a user without a token, which Load discards.
func (s *SessionStore) Save(token string, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.backend.Set(KeyUser, string(data)); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	if err := s.backend.Set(KeyToken, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Load reads the persisted session. A missing, unparsable or invalid user,
// or a missing token, yields false and clears both keys.
func (s *SessionStore) Load() (Record, bool) {
	rawUser, hasUser, err := s.backend.Get(KeyUser)
	if err != nil {
		slog.Warn("Failed to read persisted user", "error", err)
		return Record{}, false
	}
	token, hasToken, err := s.backend.Get(KeyToken)
	if err != nil {
		slog.Warn("Failed to read persisted token", "error", err)
		return Record{}, false
	}

	if !hasUser && !hasToken {
		return Record{}, false
	}

	user, err := decodeUser(rawUser, hasUser)
	if err != nil {
		slog.Debug("Discarding corrupt persisted session", "error", err)
		s.discard()
		return Record{}, false
	}
	if !hasToken || token == "" {
		slog.Debug("Discarding persisted user without token", "user_id", user.ID)
		s.discard()
		return Record{}, false
	}

	return Record{Token: token, User: user}, true
}

// Clear removes both values unconditionally
func (s *SessionStore) Clear() error {
	return s.backend.Delete(KeyToken, KeyUser)
}

// Token reads the persisted bearer token, or "" if none
func (s *SessionStore) Token() string {
	token, ok, err := s.backend.Get(KeyToken)
	if err != nil || !ok {
		return ""
	}
	return token
}

// DiscardToken removes only the token, leaving the user slot untouched
func (s *SessionStore) DiscardToken() error {
	return s.backend.Delete(KeyToken)
}

// Close closes the underlying backend
func (s *SessionStore) Close() error {
	return s.backend.Close()
}

func (s *SessionStore) discard() {
	if err := s.Clear(); err != nil {
		slog.Warn("Failed to clear persisted session", "error", err)
	}
}

var errNoUser = errors.New("no persisted user")

func decodeUser(raw string, present bool) (models.User, error) {
	if !present || raw == "" {
		return models.User{}, errNoUser
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return models.User{}, fmt.Errorf("unparsable user: %w", err)
	}
	if err := user.Validate(); err != nil {
		return models.User{}, err
	}
	return user, nil
}
