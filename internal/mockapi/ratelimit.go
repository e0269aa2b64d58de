// ABOUTME: Fixed-window request limiter for the mock backend
// ABOUTME: Exhausted keys get 429 with Retry-After so clients can exercise their cooldown

package mockapi

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// pruneThreshold bounds how many keys accumulate before expired ones are dropped
const pruneThreshold = 256

type window struct {
	used  int
	reset time.Time
}

// RateLimiter allows limit requests per key in each window. A key's window
// opens with its first request.
type RateLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu   sync.Mutex
	keys map[string]window
}

// NewRateLimiter creates a limiter allowing limit requests per period
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		period: period,
		now:    time.Now,
		keys:   map[string]window{},
	}
}

// Allow records a request for key. When the quota is spent it returns false
// and how long until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.keys[key]
	if !ok || !now.Before(w.reset) {
		if !ok && len(rl.keys) >= pruneThreshold {
			rl.prune(now)
		}
		rl.keys[key] = window{used: 1, reset: now.Add(rl.period)}
		return true, 0
	}

	if w.used >= rl.limit {
		return false, w.reset.Sub(now)
	}
	w.used++
	rl.keys[key] = w
	return true, 0
}

// Reset forgets every key
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.keys = map[string]window{}
}

// prune requires rl.mu
func (rl *RateLimiter) prune(now time.Time) {
	for k, w := range rl.keys {
		if !now.Before(w.reset) {
			delete(rl.keys, k)
		}
	}
}

// ClientIP keys a request by its first valid X-Forwarded-For hop, else by
// the peer address
func ClientIP(r *http.Request) string {
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
		return "ip:" + ip.String()
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// UserOrIP keys signed-in requests by user id
func UserOrIP(r *http.Request) string {
	if claims := GetClaims(r); claims != nil && claims.UserID != "" {
		return "user:" + claims.UserID
	}
	return ClientIP(r)
}

// RateLimit wraps handlers with limiter, keyed by keyOf. A nil limiter or an
// empty key lets the request through.
func RateLimit(limiter *RateLimiter, keyOf func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil || keyOf == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" {
				next(w, r)
				return
			}

			ok, wait := limiter.Allow(key)
			if ok {
				next(w, r)
				return
			}

			secs := int(math.Ceil(wait.Seconds()))
			slog.Warn("Rate limit exceeded", "key", key, "path", r.URL.Path, "retry_after", secs)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":       "Too many requests, please try again later",
				"retry_after": secs,
			})
		}
	}
}
