// ABOUTME: Fixed-interval background fetcher that keeps the last good value
// ABOUTME: Stops deterministically on context cancellation or Stop, never leaking its ticker

package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FetchFunc retrieves one value
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller calls a FetchFunc immediately and then on every tick
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]

	mu        sync.RWMutex
	last      T
	hasLast   bool
	lastErr   error
	updatedAt time.Time
	listeners []func(T, error)

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped poller
func New[T any](name string, interval time.Duration, fetch FetchFunc[T]) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
	}
}

// OnResult registers fn to run after every fetch, successful or not.
// On error the value passed is the last good one.
func (p *Poller[T]) OnResult(fn func(T, error)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Start begins polling. Calling Start on a running poller is a no-op.
func (p *Poller[T]) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
	slog.Debug("Poller started", "poller", p.name, "interval", p.interval)
}

// Stop cancels polling and waits for the loop to exit
func (p *Poller[T]) Stop() {
	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Debug("Poller stopped", "poller", p.name)
}

// Running reports whether the loop is active
func (p *Poller[T]) Running() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	return p.cancel != nil
}

// Latest returns the last successfully fetched value
func (p *Poller[T]) Latest() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.hasLast
}

// Err returns the error from the most recent fetch, or nil
func (p *Poller[T]) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// UpdatedAt is when the last good value was fetched
func (p *Poller[T]) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// Poll fetches once outside the loop and records the result
func (p *Poller[T]) Poll(ctx context.Context) (T, error) {
	v, err := p.fetch(ctx)

	p.mu.Lock()
	if err != nil {
		p.lastErr = err
		v = p.last
	} else {
		p.last = v
		p.hasLast = true
		p.lastErr = nil
		p.updatedAt = time.Now()
	}
	fns := append([]func(T, error){}, p.listeners...)
	p.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		slog.Warn("Poll failed, keeping last value", "poller", p.name, "error", err)
	}
	for _, fn := range fns {
		fn(v, err)
	}
	return v, err
}

func (p *Poller[T]) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}
