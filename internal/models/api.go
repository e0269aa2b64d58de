// ABOUTME: Request/response envelopes for the lending backend REST API
// ABOUTME: Mirrors the JSON contracts of the auth, settings and notification endpoints

package models

// LoginRequest represents credentials for authentication
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthData is the payload shared by login and register responses
type AuthData struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// LoginResponse is the body returned by POST /api/auth/login
type LoginResponse struct {
	Status  string    `json:"status"` // "success" or "error"
	Message string    `json:"message"`
	Data    *AuthData `json:"data"`
}

// RegisterRequest is a student self-registration
type RegisterRequest struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	StudentID string `json:"studentId,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Faculty   string `json:"faculty,omitempty"`
	Class     string `json:"class,omitempty"`
}

// RegisterResponse is the body returned by POST /api/auth/register
type RegisterResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *AuthData `json:"data"`
}

// ProfileResponse is the body returned by GET /api/auth/profile.
// A nil Data signals an invalid session.
type ProfileResponse struct {
	Data *User `json:"data"`
}

// MaintenanceStatus is the system-wide maintenance switch
type MaintenanceStatus struct {
	MaintenanceMode    bool   `json:"maintenanceMode"`
	MaintenanceMessage string `json:"maintenanceMessage"`
}

// MaintenanceResponse is the body returned by GET /api/settings/maintenance-status
type MaintenanceResponse struct {
	Success bool               `json:"success"`
	Data    *MaintenanceStatus `json:"data"`
}

// NotificationType classifies a user notification
type NotificationType string

const (
	NotificationRequestApproved NotificationType = "request_approved"
	NotificationRequestRejected NotificationType = "request_rejected"
	NotificationReturnReminder  NotificationType = "return_reminder"
	NotificationSystem          NotificationType = "system"
)

// Notification is a message addressed to the current user
type Notification struct {
	ID        string           `json:"_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt string           `json:"createdAt"`
	RequestID string           `json:"requestId,omitempty"`
}

// NotificationsResponse is the body returned by GET /api/notifications
type NotificationsResponse struct {
	Success bool           `json:"success"`
	Data    []Notification `json:"data"`
}

// ErrorResponse represents an API error body.
// Message is used by the auth endpoints, Error by middleware responses.
type ErrorResponse struct {
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Code       int    `json:"code,omitempty"`
}

// HealthResponse represents the /api/health endpoint response
type HealthResponse struct {
	Status      string `json:"status"`
	Maintenance bool   `json:"maintenance"`
}
