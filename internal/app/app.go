// ABOUTME: Composition root wiring store, session, transport, bootstrap and pollers
// ABOUTME: Implements the login, register and logout flows shared by the CLI and TUI

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/markalston/equiplend/internal/bootstrap"
	"github.com/markalston/equiplend/internal/client"
	"github.com/markalston/equiplend/internal/config"
	"github.com/markalston/equiplend/internal/cooldown"
	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/poller"
	"github.com/markalston/equiplend/internal/route"
	"github.com/markalston/equiplend/internal/session"
	"github.com/markalston/equiplend/internal/store"
)

// ErrCoolingDown is returned by Login and Register while the rate-limit
// cooldown is active
var ErrCoolingDown = errors.New("too many attempts, please wait before trying again")

// App owns every long-lived client component
type App struct {
	Config        *config.Config
	Store         *store.SessionStore
	Session       *session.Container
	Client        *client.Client
	Bootstrap     *bootstrap.Bootstrapper
	Cooldown      *cooldown.Cooldown
	Maintenance   *poller.Poller[models.MaintenanceStatus]
	Notifications *poller.Poller[[]models.Notification]

	unwatch func()
}

// New builds the component graph from cfg and hydrates the session
// synchronously from the store. The hydrated session is optimistic until
// Start verifies it.
func New(cfg *config.Config) (*App, error) {
	backend, err := store.Open(store.Kind(cfg.Store), cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	ss := store.New(backend)

	c, err := client.New(cfg.APIURL,
		client.WithTokenSource(ss),
		client.WithTokenDiscarder(ss),
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithProxy(cfg.AllProxy),
	)
	if err != nil {
		ss.Close()
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	sess := session.New(ss)
	sess.Hydrate()

	a := &App{
		Config:   cfg,
		Store:    ss,
		Session:  sess,
		Client:   c,
		Cooldown: cooldown.New(cfg.RateLimitCooldown),
		Bootstrap: bootstrap.New(sess, c, bootstrap.Options{
			VerifyTimeout:            cfg.VerifyTimeout,
			RetryDelay:               cfg.RetryDelay,
			InvalidateOnNetworkError: cfg.InvalidateOnNetworkError,
		}),
	}

	a.Maintenance = poller.New[models.MaintenanceStatus]("maintenance", cfg.MaintenanceInterval, a.fetchMaintenance)
	a.Notifications = poller.New[[]models.Notification]("notifications", cfg.NotificationInterval, a.fetchNotifications)

	if cfg.AutoReverify {
		a.unwatch = a.Bootstrap.Watch()
	}
	return a, nil
}

// Start verifies the hydrated session against the backend and fetches the
// maintenance status in parallel. Verification failures are reported
// through the returned state, not the error.
func (a *App) Start(ctx context.Context) (bootstrap.State, error) {
	var st bootstrap.State

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st, err = a.Bootstrap.Run(gctx)
		if errors.Is(err, bootstrap.ErrInFlight) {
			return err
		}
		if err != nil {
			slog.Debug("Startup verification finished with error", "state", st.String(), "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := a.Maintenance.Poll(gctx); err != nil {
			slog.Debug("Initial maintenance check failed", "error", err)
		}
		return nil
	})

	err := g.Wait()
	return st, err
}

// StartPolling runs the maintenance and notification loops until ctx is
// canceled or Close is called
func (a *App) StartPolling(ctx context.Context) {
	a.Maintenance.Start(ctx)
	a.Notifications.Start(ctx)
}

// Login authenticates and returns the path the user lands on. A 429
// starts the cooldown, during which further attempts fail fast with
// ErrCoolingDown.
func (a *App) Login(ctx context.Context, email, password string) (string, error) {
	if err := a.checkCooldown(); err != nil {
		return "", err
	}

	data, err := a.Client.Login(ctx, email, password)
	if err != nil {
		a.noteRateLimit(err)
		return "", err
	}
	return a.establish(data)
}

// Register creates a student account, signs it in and returns the path
// the user lands on
func (a *App) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	if err := a.checkCooldown(); err != nil {
		return "", err
	}

	data, err := a.Client.Register(ctx, req)
	if err != nil {
		a.noteRateLimit(err)
		return "", err
	}
	return a.establish(data)
}

// Logout clears the session and returns the login path
func (a *App) Logout() string {
	a.Session.Logout()
	return route.Login
}

// Navigate resolves path for the current session, following redirects
func (a *App) Navigate(path string) (string, route.Decision) {
	return route.Follow(a.Session.Snapshot(), path)
}

// MarkNotificationRead marks one notification read and refreshes the list
func (a *App) MarkNotificationRead(ctx context.Context, id string) error {
	if err := a.Client.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	a.Notifications.Poll(ctx)
	return nil
}

// Close stops background work and releases the store
func (a *App) Close() error {
	a.Maintenance.Stop()
	a.Notifications.Stop()
	if a.unwatch != nil {
		a.unwatch()
	}
	a.Bootstrap.Close()
	return a.Store.Close()
}

func (a *App) establish(data *models.AuthData) (string, error) {
	if !a.Session.SetCredentials(*data.User, data.Token) {
		return "", fmt.Errorf("%w: role %q rejected", client.ErrInvalidPayload, data.User.Role)
	}
	slog.Info("Signed in", "user_id", data.User.ID, "role", data.User.Role)
	return route.DefaultPath(data.User.Role), nil
}

func (a *App) checkCooldown() error {
	if a.Cooldown.Active() {
		return fmt.Errorf("%w (%s left)", ErrCoolingDown, a.Cooldown.Remaining())
	}
	return nil
}

func (a *App) noteRateLimit(err error) {
	if errors.Is(err, client.ErrRateLimited) {
		until := a.Cooldown.Start()
		slog.Warn("Rate limited, cooling down", "until", until)
	}
}

func (a *App) fetchMaintenance(ctx context.Context) (models.MaintenanceStatus, error) {
	status, err := a.Client.MaintenanceStatus(ctx)
	if err != nil {
		return models.MaintenanceStatus{}, err
	}
	return *status, nil
}

// fetchNotifications skips the request when nobody is signed in
func (a *App) fetchNotifications(ctx context.Context) ([]models.Notification, error) {
	if !a.Session.IsAuthenticated() {
		return []models.Notification{}, nil
	}
	return a.Client.Notifications(ctx)
}
