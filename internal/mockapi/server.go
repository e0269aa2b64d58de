// ABOUTME: Mock lending backend implementing the auth, settings and notification contract
// ABOUTME: chi router wired with rate limiting, request logging and bearer auth

package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markalston/equiplend/internal/models"
)

// Options configures a Server
type Options struct {
	JWTSecret          string
	TokenTTL           time.Duration
	RateLimitAuth      int // per minute per client on login/register, 0 disables
	RateLimitDefault   int // per minute per client elsewhere, 0 disables
	Maintenance        bool
	MaintenanceMessage string
	BcryptCost         int // 0 means bcrypt.DefaultCost
}

// Server is the mock backend
type Server struct {
	users  *Directory
	tokens *TokenIssuer

	authLimiter    *RateLimiter
	defaultLimiter *RateLimiter

	mu            sync.RWMutex
	maintenance   models.MaintenanceStatus
	notifications map[string][]models.Notification // by user ID
}

// New creates a server with seeded accounts
func New(opts Options) (*Server, error) {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}

	s := &Server{
		users:  NewDirectory(opts.BcryptCost),
		tokens: NewTokenIssuer(opts.JWTSecret, opts.TokenTTL),
		maintenance: models.MaintenanceStatus{
			MaintenanceMode:    opts.Maintenance,
			MaintenanceMessage: opts.MaintenanceMessage,
		},
		notifications: make(map[string][]models.Notification),
	}
	if opts.RateLimitAuth > 0 {
		s.authLimiter = NewRateLimiter(opts.RateLimitAuth, time.Minute)
	}
	if opts.RateLimitDefault > 0 {
		s.defaultLimiter = NewRateLimiter(opts.RateLimitDefault, time.Minute)
	}

	if err := s.users.Seed(); err != nil {
		s.tokens.Close()
		return nil, err
	}
	if student, err := s.users.FindByEmail(SeedStudentEmail); err == nil {
		s.Notify(student.ID, models.NotificationSystem, "Welcome", "Your account is ready to borrow equipment.")
	}
	return s, nil
}

// Users exposes the account directory
func (s *Server) Users() *Directory { return s.users }

// Tokens exposes the token issuer
func (s *Server) Tokens() *TokenIssuer { return s.tokens }

// Close releases background resources
func (s *Server) Close() {
	s.tokens.Close()
}

// Router builds the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	authLimit := RateLimit(s.authLimiter, ClientIP)
	defaultLimit := RateLimit(s.defaultLimiter, UserOrIP)
	authed := Auth(s.tokens)

	r.Get("/api/health", Chain(s.handleHealth, LogRequest))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", Chain(s.handleLogin, LogRequest, authLimit))
		r.Post("/register", Chain(s.handleRegister, LogRequest, authLimit))
		r.Get("/profile", Chain(s.handleProfile, LogRequest, authed, defaultLimit))
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/maintenance-status", Chain(s.handleMaintenanceStatus, LogRequest, defaultLimit))
		r.Put("/maintenance", Chain(s.handleSetMaintenance, LogRequest, authed, RequireRole(models.RoleAdmin), defaultLimit))
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", Chain(s.handleNotifications, LogRequest, authed, defaultLimit))
		r.Put("/{id}/read", Chain(s.handleMarkRead, LogRequest, authed, defaultLimit))
	})

	r.Post("/api/users/{id}/revoke", Chain(s.handleRevoke, LogRequest, authed, RequireRole(models.RoleAdmin)))

	r.NotFound(Chain(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "Route not found", http.StatusNotFound)
	}, LogRequest))

	return r
}

// ListenAndServe serves on addr until ctx is cancelled. ready, if non-nil,
// receives the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	slog.Info("Mock backend listening", "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Mock backend shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// SetMaintenance switches maintenance mode
func (s *Server) SetMaintenance(on bool, message string) {
	s.mu.Lock()
	s.maintenance = models.MaintenanceStatus{MaintenanceMode: on, MaintenanceMessage: message}
	s.mu.Unlock()
	slog.Info("Maintenance mode changed", "enabled", on)
}

// Notify queues a notification for a user and returns it
func (s *Server) Notify(userID string, kind models.NotificationType, title, message string) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.mu.Lock()
	s.notifications[userID] = append(s.notifications[userID], n)
	s.mu.Unlock()
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	maintenance := s.maintenance.MaintenanceMode
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Maintenance: maintenance})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.LoginResponse{Status: "error", Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.LoginResponse{Status: "error", Message: "Email and password are required"})
		return
	}

	user, err := s.users.Authenticate(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrAccountDisabled):
		writeJSON(w, http.StatusForbidden, models.LoginResponse{Status: "error", Message: "Account is disabled"})
		return
	case err != nil:
		slog.Info("Login failed", "email", req.Email)
		writeJSON(w, http.StatusUnauthorized, models.LoginResponse{Status: "error", Message: "Invalid email or password"})
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.LoginResponse{Status: "error", Message: "Internal server error"})
		return
	}

	slog.Info("Login succeeded", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Status:  "success",
		Message: "Login successful",
		Data:    &models.AuthData{User: &user, Token: token},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.RegisterResponse{Message: "Invalid request body"})
		return
	}
	if msg := validateRegistration(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, models.RegisterResponse{Message: msg})
		return
	}

	user, err := s.users.Create(models.User{
		FullName:  strings.TrimSpace(req.FullName),
		Email:     req.Email,
		Role:      models.RoleStudent,
		StudentID: req.StudentID,
		Phone:     req.Phone,
		Faculty:   req.Faculty,
		Class:     req.Class,
	}, req.Password)
	if errors.Is(err, ErrEmailTaken) {
		writeJSON(w, http.StatusConflict, models.RegisterResponse{Message: "Email is already registered"})
		return
	}
	if err != nil {
		slog.Error("Failed to create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.RegisterResponse{Message: "Internal server error"})
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.RegisterResponse{Message: "Internal server error"})
		return
	}

	slog.Info("Student registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, models.RegisterResponse{
		Success: true,
		Message: "Registration successful",
		Data:    &models.AuthData{User: &user, Token: token},
	})
}

func validateRegistration(req models.RegisterRequest) string {
	switch {
	case strings.TrimSpace(req.FullName) == "":
		return "Full name is required"
	case !strings.Contains(req.Email, "@"):
		return "A valid email is required"
	case len(req.Password) < 6:
		return "Password must be at least 6 characters"
	}
	return ""
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	user, err := s.users.Get(claims.UserID)
	if err != nil {
		writeJSONError(w, "User no longer exists", http.StatusUnauthorized)
		return
	}
	if user.IsActive != nil && !*user.IsActive {
		writeJSONError(w, "Account is disabled", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, models.ProfileResponse{Data: &user})
}

func (s *Server) handleMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.maintenance
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, models.MaintenanceResponse{Success: true, Data: &status})
}

func (s *Server) handleSetMaintenance(w http.ResponseWriter, r *http.Request) {
	var req models.MaintenanceStatus
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.SetMaintenance(req.MaintenanceMode, req.MaintenanceMessage)
	writeJSON(w, http.StatusOK, models.MaintenanceResponse{Success: true, Data: &req})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)

	s.mu.RLock()
	list := append([]models.Notification{}, s.notifications[claims.UserID]...)
	s.mu.RUnlock()

	// newest first
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt > list[j].CreatedAt })
	writeJSON(w, http.StatusOK, models.NotificationsResponse{Success: true, Data: list})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	list := s.notifications[claims.UserID]
	found := false
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeJSONError(w, "Notification not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Notification marked as read"})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.users.Get(id); err != nil {
		writeJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	n := s.tokens.Revoke(id)
	slog.Info("Tokens revoked", "user_id", id, "count", n)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "revoked": n})
}
