// ABOUTME: Session bootstrapper reconciling the optimistic local session with the backend
// ABOUTME: Explicit state machine with a single in-flight guard and one delayed retry on rate limiting

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/markalston/equiplend/internal/client"
	"github.com/markalston/equiplend/internal/models"
	"github.com/markalston/equiplend/internal/session"
)

// ErrInFlight is returned by Run when a verification is already outstanding
var ErrInFlight = errors.New("verification already in flight")

// State is a bootstrap state
type State int

const (
	Unchecked State = iota
	Verifying
	Valid
	Invalid
	RetryScheduled
)

func (s State) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Verifying:
		return "verifying"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case RetryScheduled:
		return "retry_scheduled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the part of the session container the bootstrapper drives.
// *session.Container satisfies it.
type Session interface {
	Token() string
	Hydrate() session.Snapshot
	SetCredentials(user models.User, token string) bool
	Logout()
	Subscribe(fn func(session.Event, session.Snapshot)) (unsubscribe func())
}

// ProfileFetcher asks the backend who the current token belongs to.
// *client.Client satisfies it.
type ProfileFetcher interface {
	Profile(ctx context.Context) (*models.User, error)
}

// Options tunes verification
type Options struct {
	// VerifyTimeout bounds a single profile call
	VerifyTimeout time.Duration
	// RetryDelay is how long to wait before re-running after a 429
	RetryDelay time.Duration
	// InvalidateOnNetworkError logs the user out when the backend is unreachable
	InvalidateOnNetworkError bool
}

// DefaultOptions returns the reference timings and invalidation policy
func DefaultOptions() Options {
	return Options{
		VerifyTimeout:            5 * time.Second,
		RetryDelay:               2 * time.Second,
		InvalidateOnNetworkError: true,
	}
}

// Bootstrapper confirms the hydrated session against the backend
type Bootstrapper struct {
	session  Session
	profiles ProfileFetcher
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	busy       bool // held from Verifying until a terminal state, across a pending retry
	closed     bool
	retryTimer *time.Timer

	lisMu     sync.Mutex
	listeners map[int]func(State)
	nextLisID int
}

// New creates a bootstrapper in the Unchecked state
func New(s Session, p ProfileFetcher, opts Options) *Bootstrapper {
	defaults := DefaultOptions()
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = defaults.VerifyTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bootstrapper{
		session:   s,
		profiles:  p,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(State)),
	}
}

// State returns the current bootstrap state
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers fn to be called on every state change
func (b *Bootstrapper) Subscribe(fn func(State)) (unsubscribe func()) {
	b.lisMu.Lock()
	id := b.nextLisID
	b.nextLisID++
	b.listeners[id] = fn
	b.lisMu.Unlock()

	return func() {
		b.lisMu.Lock()
		delete(b.listeners, id)
		b.lisMu.Unlock()
	}
}

// Run verifies the session synchronously. It returns ErrInFlight, leaving
// the state unchanged, when another verification or retry is outstanding.
func (b *Bootstrapper) Run(ctx context.Context) (State, error) {
	if !b.acquire() {
		return b.State(), ErrInFlight
	}
	return b.execute(ctx)
}

// Trigger starts a verification in the background. The guard is taken
// before Trigger returns; false means the trigger was dropped.
func (b *Bootstrapper) Trigger(ctx context.Context) bool {
	if !b.acquire() {
		slog.Debug("Verification trigger dropped", "state", b.State().String())
		return false
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Verification panicked", "panic", r)
			}
		}()
		if _, err := b.execute(ctx); err != nil {
			slog.Debug("Background verification finished with error", "error", err)
		}
	}()
	return true
}

// Watch re-verifies whenever credentials are set on the container. The
// SetCredentials issued by verification itself is dropped by the guard.
func (b *Bootstrapper) Watch() (unsubscribe func()) {
	return b.session.Subscribe(func(e session.Event, _ session.Snapshot) {
		if e != session.EventCredentialsSet {
			return
		}
		b.Trigger(b.ctx)
	})
}

// Close cancels any pending retry and in-flight verification and waits for
// background work to finish.
func (b *Bootstrapper) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	stopped := false
	if b.retryTimer != nil {
		stopped = b.retryTimer.Stop()
		b.retryTimer = nil
	}
	b.mu.Unlock()

	b.cancel()
	if stopped {
		// the retry will never run, so release what it held
		b.wg.Done()
		b.finish(Unchecked)
	}
	b.wg.Wait()
}

// acquire takes the in-flight guard and moves to Verifying
func (b *Bootstrapper) acquire() bool {
	b.mu.Lock()
	if b.busy || b.closed {
		b.mu.Unlock()
		return false
	}
	b.busy = true
	b.state = Verifying
	b.mu.Unlock()

	b.publish(Verifying)
	return true
}

// finish records a terminal state and releases the guard unless a retry
// is pending
func (b *Bootstrapper) finish(st State) {
	b.mu.Lock()
	b.state = st
	if st != RetryScheduled {
		b.busy = false
	}
	b.mu.Unlock()

	b.publish(st)
}

// execute runs one verification with the guard held. The guard is
// released on every path, including panics.
func (b *Bootstrapper) execute(ctx context.Context) (State, error) {
	st := Unchecked
	defer func() { b.finish(st) }()

	var err error
	st, err = b.verify(ctx)
	return st, err
}

func (b *Bootstrapper) verify(ctx context.Context) (State, error) {
	token := b.session.Token()
	if token == "" {
		slog.Info("No stored token, session invalid")
		b.session.Logout()
		return Invalid, nil
	}

	vctx, cancel := context.WithTimeout(ctx, b.opts.VerifyTimeout)
	defer cancel()

	start := time.Now()
	user, err := b.profiles.Profile(vctx)
	if b.session.Token() != token {
		slog.Debug("Session changed during verification, discarding result", "error", err)
		return Unchecked, nil
	}
	if err == nil {
		if !b.session.SetCredentials(*user, token) {
			b.session.Logout()
			return Invalid, fmt.Errorf("%w: profile role rejected", client.ErrInvalidPayload)
		}
		slog.Info("Session verified",
			"user_id", user.ID,
			"role", user.Role,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return Valid, nil
	}

	switch {
	case errors.Is(err, client.ErrRateLimited):
		if b.scheduleRetry() {
			slog.Warn("Verification rate limited, retry scheduled", "delay", b.opts.RetryDelay)
			return RetryScheduled, err
		}
		return Unchecked, err

	case errors.Is(ctx.Err(), context.Canceled):
		slog.Debug("Verification canceled")
		return Unchecked, err

	case errors.Is(err, client.ErrUnreachable) && !b.opts.InvalidateOnNetworkError:
		slog.Warn("Backend unreachable, keeping optimistic session", "error", err)
		return Unchecked, err
	}

	slog.Info("Session verification failed, logging out", "error", err)
	b.session.Logout()
	return Invalid, err
}

// scheduleRetry arms the single retry timer. The guard stays held until
// the retry completes, so further triggers are dropped meanwhile.
func (b *Bootstrapper) scheduleRetry() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	if b.retryTimer != nil {
		return true
	}
	b.wg.Add(1)
	b.retryTimer = time.AfterFunc(b.opts.RetryDelay, b.retry)
	return true
}

func (b *Bootstrapper) retry() {
	defer b.wg.Done()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.finish(Unchecked)
		return
	}
	b.retryTimer = nil
	b.state = Verifying
	b.mu.Unlock()
	b.publish(Verifying)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Verification retry panicked", "panic", r)
		}
	}()

	slog.Debug("Re-running bootstrap after rate limit")
	b.session.Hydrate()
	if _, err := b.execute(b.ctx); err != nil {
		slog.Debug("Verification retry finished with error", "error", err)
	}
}

func (b *Bootstrapper) publish(st State) {
	b.lisMu.Lock()
	fns := make([]func(State), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.lisMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
