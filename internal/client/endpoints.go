// ABOUTME: Typed calls for the auth, settings and notification endpoints
// ABOUTME: Validates every payload before it leaves the transport

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/markalston/equiplend/internal/models"
)

// API paths
const (
	PathLogin       = "/api/auth/login"
	PathRegister    = "/api/auth/register"
	PathProfile     = "/api/auth/profile"
	PathMaintenance = "/api/settings/maintenance-status"
	PathNotify      = "/api/notifications"
	PathHealth      = "/api/health"
)

// Login calls POST /api/auth/login. Success requires status "success",
// a token, and a user that passes validation.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthData, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, PathLogin, req, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "success" {
		msg := resp.Message
		if msg == "" {
			msg = "login failed"
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, msg)
	}
	return validateAuthData(resp.Data)
}

// Register calls POST /api/auth/register for a student self-registration
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthData, error) {
	var resp models.RegisterResponse
	if err := c.do(ctx, http.MethodPost, PathRegister, req, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "registration failed"
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, msg)
	}
	return validateAuthData(resp.Data)
}

// Profile calls GET /api/auth/profile. A missing or invalid user is ErrInvalidPayload.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var resp models.ProfileResponse
	if err := c.do(ctx, http.MethodGet, PathProfile, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: profile has no user", ErrInvalidPayload)
	}
	if err := resp.Data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return resp.Data, nil
}

// MaintenanceStatus calls GET /api/settings/maintenance-status
func (c *Client) MaintenanceStatus(ctx context.Context) (*models.MaintenanceStatus, error) {
	var resp models.MaintenanceResponse
	if err := c.do(ctx, http.MethodGet, PathMaintenance, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, fmt.Errorf("%w: maintenance status unavailable", ErrInvalidPayload)
	}
	return resp.Data, nil
}

// Notifications calls GET /api/notifications
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var resp models.NotificationsResponse
	if err := c.do(ctx, http.MethodGet, PathNotify, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: notifications unavailable", ErrInvalidPayload)
	}
	if resp.Data == nil {
		return []models.Notification{}, nil
	}
	return resp.Data, nil
}

// MarkNotificationRead calls PUT /api/notifications/{id}/read
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("notification id is required")
	}
	return c.do(ctx, http.MethodPut, PathNotify+"/"+url.PathEscape(id)+"/read", nil, nil)
}

// Health calls GET /api/health
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := c.do(ctx, http.MethodGet, PathHealth, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func validateAuthData(data *models.AuthData) (*models.AuthData, error) {
	if data == nil || data.User == nil || data.Token == "" {
		return nil, fmt.Errorf("%w: response is missing user or token", ErrInvalidPayload)
	}
	if err := data.User.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return data, nil
}
