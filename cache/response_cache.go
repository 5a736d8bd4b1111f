package cache

import (
	"strconv"
	"sync"
	"time"
)

// ResponseCache is an in-memory, TTL-bounded store for delivery API response
// bodies. Entries are tagged with the Groups their construction depended on;
// invalidating a group removes exactly the entries tagged with it. Expiry is
// checked lazily on Get, there is no background sweep.
//
// All operations are safe for concurrent use.
type ResponseCache struct {
	mu      sync.Mutex
	maxAge  time.Duration
	entries map[string]*entry
	byGroup map[Group]map[string]struct{}

	now func() time.Time // overridable in tests
}

type entry struct {
	value      []byte
	insertedAt time.Time
	groups     []Group
}

func New(maxAge time.Duration) *ResponseCache {
	return &ResponseCache{
		maxAge:  maxAge,
		entries: make(map[string]*entry),
		byGroup: make(map[Group]map[string]struct{}),
		now:     time.Now,
	}
}

// Key derives the cache key for an endpoint URL and preview flag. The pair is
// encoded injectively: distinct endpoints or differing preview flags never
// collide.
func Key(endpoint string, preview bool) string {
	return strconv.FormatBool(preview) + "|" + endpoint
}

// Get returns the cached value for key, or a miss if the entry is absent or
// older than maxAge. An expired entry found on read is removed.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) > c.maxAge {
		c.removeLocked(key, e)
		return nil, false
	}
	return e.value, true
}

// Put stores value under key, overwriting any existing entry, and tags it
// with the given groups for later group invalidation.
func (c *ResponseCache) Put(key string, value []byte, groups ...Group) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(key, old)
	}

	c.entries[key] = &entry{
		value:      value,
		insertedAt: c.now(),
		groups:     groups,
	}
	for _, g := range groups {
		keys, ok := c.byGroup[g]
		if !ok {
			keys = make(map[string]struct{})
			c.byGroup[g] = keys
		}
		keys[key] = struct{}{}
	}
}

// Invalidate removes the entry for key, if any.
func (c *ResponseCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
}

// InvalidateGroup removes every entry tagged with g and returns how many
// entries were cleared.
func (c *ResponseCache) InvalidateGroup(g Group) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.byGroup[g]
	if !ok {
		return 0
	}
	n := 0
	for key := range keys {
		if e, ok := c.entries[key]; ok {
			c.removeLocked(key, e)
			n++
		}
	}
	return n
}

// InvalidateAll clears the whole cache.
func (c *ResponseCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.byGroup = make(map[Group]map[string]struct{})
}

// Len returns the number of live entries (including not-yet-evicted expired
// ones).
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResponseCache) removeLocked(key string, e *entry) {
	delete(c.entries, key)
	for _, g := range e.groups {
		if keys, ok := c.byGroup[g]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byGroup, g)
			}
		}
	}
}
