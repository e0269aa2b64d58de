// ABOUTME: In-memory user directory for the mock backend
// ABOUTME: bcrypt password hashes, seeded admin and student accounts, student self-registration

package mockapi

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/markalston/equiplend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserNotFound       = errors.New("user not found")
)

// Seed accounts available on every mock server
const (
	SeedAdminEmail      = "admin@equiplend.local"
	SeedAdminPassword   = "admin123"
	SeedStudentEmail    = "student@equiplend.local"
	SeedStudentPassword = "student123"
)

type account struct {
	user models.User
	hash []byte
}

// Directory stores accounts by email
type Directory struct {
	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
	cost    int
}

// NewDirectory creates an empty directory. cost is the bcrypt cost; zero
// means bcrypt.DefaultCost.
func NewDirectory(cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
		cost:    cost,
	}
}

// Seed adds the default admin and student accounts
func (d *Directory) Seed() error {
	seeds := []struct {
		user     models.User
		password string
	}{
		{models.User{FullName: "System Administrator", Email: SeedAdminEmail, Role: models.RoleAdmin}, SeedAdminPassword},
		{models.User{FullName: "Demo Student", Email: SeedStudentEmail, Role: models.RoleStudent, StudentID: "S0001", Faculty: "Engineering", Class: "ENG-1"}, SeedStudentPassword},
	}
	for _, s := range seeds {
		if _, err := d.Create(s.user, s.password); err != nil && !errors.Is(err, ErrEmailTaken) {
			return err
		}
	}
	return nil
}

// Create adds an account with a fresh ID and hashed password
func (d *Directory) Create(u models.User, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return models.User{}, err
	}

	email := normalizeEmail(u.Email)
	now := time.Now().UTC().Format(time.RFC3339)
	active := true

	u.ID = uuid.NewString()
	u.Email = email
	u.IsActive = &active
	u.CreatedAt = now
	u.UpdatedAt = now

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byEmail[email]; exists {
		return models.User{}, ErrEmailTaken
	}
	a := &account{user: u, hash: hash}
	d.byEmail[email] = a
	d.byID[u.ID] = a
	return u, nil
}

// Authenticate checks a password and returns the account's user
func (d *Directory) Authenticate(email, password string) (models.User, error) {
	d.mu.RLock()
	a, ok := d.byEmail[normalizeEmail(email)]
	d.mu.RUnlock()
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if a.user.IsActive != nil && !*a.user.IsActive {
		return models.User{}, ErrAccountDisabled
	}
	return a.user, nil
}

// Get returns a user by ID
func (d *Directory) Get(id string) (models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return a.user, nil
}

// FindByEmail returns a user by email
func (d *Directory) FindByEmail(email string) (models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return a.user, nil
}

// Update applies fn to a stored user. ID and Email cannot change.
func (d *Directory) Update(id string, fn func(*models.User)) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	u := a.user
	fn(&u)
	u.ID, u.Email = a.user.ID, a.user.Email
	u.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	a.user = u
	return u, nil
}

// SetActive enables or disables an account
func (d *Directory) SetActive(id string, active bool) (models.User, error) {
	return d.Update(id, func(u *models.User) {
		u.IsActive = &active
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
