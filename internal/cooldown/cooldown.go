// ABOUTME: Fixed-duration cooldown gate shown after a rate-limited request
// ABOUTME: Dismissable notice with a retry affordance that re-enables once the window elapses

package cooldown

import (
	"sync"
	"time"
)

// DefaultDuration is the fixed wait before a rate-limited action may be retried
const DefaultDuration = 60 * time.Second

// Cooldown blocks an action for a fixed window
type Cooldown struct {
	mu        sync.Mutex
	duration  time.Duration
	until     time.Time
	dismissed bool
	now       func() time.Time
}

// New creates an inactive cooldown. A non-positive duration uses DefaultDuration.
func New(d time.Duration) *Cooldown {
	if d <= 0 {
		d = DefaultDuration
	}
	return &Cooldown{duration: d, now: time.Now}
}

// Duration is the fixed window length
func (c *Cooldown) Duration() time.Duration {
	return c.duration
}

// Start opens a new window from now and returns when it ends. A server
// Retry-After hint does not shorten or extend the window.
func (c *Cooldown) Start() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = c.now().Add(c.duration)
	c.dismissed = false
	return c.until
}

// Active reports whether the action is still blocked
func (c *Cooldown) Active() bool {
	return c.Remaining() > 0
}

// Remaining is the time left in the window, rounded up to whole seconds
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	left := c.until.Sub(c.now())
	if left <= 0 {
		return 0
	}
	return (left + time.Second - 1).Truncate(time.Second)
}

// Dismiss hides the notice. The action stays blocked until the window ends.
func (c *Cooldown) Dismiss() {
	c.mu.Lock()
	c.dismissed = true
	c.mu.Unlock()
}

// Visible reports whether the notice should be shown
func (c *Cooldown) Visible() bool {
	c.mu.Lock()
	dismissed := c.dismissed
	c.mu.Unlock()
	return !dismissed && c.Active()
}

// Reset clears the window
func (c *Cooldown) Reset() {
	c.mu.Lock()
	c.until = time.Time{}
	c.dismissed = false
	c.mu.Unlock()
}
