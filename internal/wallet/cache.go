package wallet

import (
	"sync"
	"time"
)

// Cache memoizes short-lived external-service credentials, such as exchanged
// OAuth2 access tokens. It is injected by the composition root rather than
// living in package-global state. Expiry is checked against wall-clock time
// before a value is reused.
type Cache interface {
	Lookup(key string) (string, bool)
	Store(key, value string, expiry time.Time)
}

type cacheEntry struct {
	value  string
	expiry time.Time
}

// MemoryCache is a mutex-guarded in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *MemoryCache) Lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(entry.expiry) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

func (c *MemoryCache) Store(key, value string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, expiry: expiry}
}
