package internal

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultLogCacheSize is how many session logs are kept in memory
const DefaultLogCacheSize = 50

// LogCache keeps fetched chat logs keyed by session id. It is bounded: when a
// new session is added to a full cache, the session inserted longest ago is
// evicted. Reads do not affect eviction order.
type LogCache struct {
	mu      sync.Mutex
	max     int
	entries *orderedmap.OrderedMap[string, []ChatLogEntry]
}

// NewLogCache creates a cache holding at most max sessions.
// A non-positive max uses DefaultLogCacheSize.
func NewLogCache(max int) *LogCache {
	if max <= 0 {
		max = DefaultLogCacheSize
	}
	return &LogCache{
		max:     max,
		entries: orderedmap.New[string, []ChatLogEntry](),
	}
}

// Get returns the exact slice stored for sessionID
func (c *LogCache) Get(sessionID string) ([]ChatLogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(sessionID)
}

// Put stores logs for sessionID. Re-putting an existing session replaces its
// logs and counts as a fresh insertion.
func (c *LogCache) Put(sessionID string, logs []ChatLogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries.Get(sessionID); ok {
		c.entries.Set(sessionID, logs)
		_ = c.entries.MoveToBack(sessionID)
		return
	}

	for c.entries.Len() >= c.max {
		oldest := c.entries.Oldest()
		if oldest == nil {
			break
		}
		c.entries.Delete(oldest.Key)
		LogDebug("log cache full, evicted session %s", oldest.Key)
	}
	c.entries.Set(sessionID, logs)
}

// Len returns the number of cached sessions
func (c *LogCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Max returns the bound
func (c *LogCache) Max() int {
	return c.max
}

// Keys returns cached session ids, oldest first
func (c *LogCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.entries.Len())
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clear drops every entry
func (c *LogCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = orderedmap.New[string, []ChatLogEntry]()
}
