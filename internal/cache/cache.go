// ABOUTME: In-memory cache with TTL-based expiration
// ABOUTME: Thread-safe typed cache using sync.Map with a stoppable cleanup loop

package cache

import (
	"log/slog"
	"sync"
	"time"
)

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache maps string keys to values that expire after a TTL
type Cache[V any] struct {
	store sync.Map
	ttl   time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a cache whose entries live for ttl and starts a cleanup
// loop that sweeps expired entries every sweep interval. Call Close to
// stop it.
func New[V any](ttl, sweep time.Duration) *Cache[V] {
	c := &Cache[V]{
		ttl:  ttl,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if sweep <= 0 {
		sweep = time.Minute
	}
	go c.startCleanup(sweep)
	return c
}

// Get returns the value for key if present and unexpired
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.store.Load(key)
	if !ok {
		slog.Debug("Cache miss", "key", key)
		return zero, false
	}

	e := val.(entry[V])
	if time.Now().After(e.expiresAt) {
		c.store.Delete(key)
		slog.Debug("Cache expired", "key", key)
		return zero, false
	}

	slog.Debug("Cache hit", "key", key)
	return e.data, true
}

// Set stores a value with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.store.Store(key, entry[V]{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	})
	slog.Debug("Cache set", "key", key, "ttl", ttl)
}

// Clear removes key
func (c *Cache[V]) Clear(key string) {
	c.store.Delete(key)
}

// Len counts unexpired entries
func (c *Cache[V]) Len() int {
	now := time.Now()
	n := 0
	c.store.Range(func(_, val interface{}) bool {
		if !now.After(val.(entry[V]).expiresAt) {
			n++
		}
		return true
	})
	return n
}

// Close stops the cleanup loop and waits for it to exit. Idempotent.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Cache[V]) startCleanup(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.store.Range(func(key, val interface{}) bool {
				if now.After(val.(entry[V]).expiresAt) {
					c.store.Delete(key)
				}
				return true
			})
		}
	}
}
