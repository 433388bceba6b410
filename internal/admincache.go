package internal

import (
	"context"
	"sync"
	"time"
)

// DefaultAdminCacheTTL is how long a fetched admin list is reused
const DefaultAdminCacheTTL = 30 * time.Second

// AdminFetcher loads the admin list from the backend
type AdminFetcher func(ctx context.Context) ([]AdminUser, error)

// AdminCache is a time-bounded cache of the admin user list
type AdminCache struct {
	mu        sync.Mutex
	fetch     AdminFetcher
	ttl       time.Duration
	clock     Clock
	users     []AdminUser
	fetchedAt time.Time
	valid     bool
}

// NewAdminCache creates a cache around fetch. A non-positive ttl uses
// DefaultAdminCacheTTL; a nil clock uses RealClock.
func NewAdminCache(fetch AdminFetcher, ttl time.Duration, clock Clock) *AdminCache {
	if ttl <= 0 {
		ttl = DefaultAdminCacheTTL
	}
	if clock == nil {
		clock = RealClock
	}
	return &AdminCache{fetch: fetch, ttl: ttl, clock: clock}
}

// Users returns the cached list while it is younger than the TTL, unless
// force is set. Otherwise it fetches a fresh list and restarts the TTL.
// A failed fetch leaves the previous state untouched.
func (c *AdminCache) Users(ctx context.Context, force bool) ([]AdminUser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if !force && c.valid && now.Sub(c.fetchedAt) < c.ttl {
		LogDebug("admin list served from cache (age %s)", now.Sub(c.fetchedAt).Round(time.Millisecond))
		return c.users, nil
	}

	users, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []AdminUser{}
	}
	c.users = users
	c.fetchedAt = now
	c.valid = true
	return users, nil
}

// Invalidate forces the next Users call to refetch
func (c *AdminCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = nil
	c.fetchedAt = time.Time{}
	c.valid = false
}
