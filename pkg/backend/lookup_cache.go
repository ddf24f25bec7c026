package backend

import (
	"strings"
	"sync"
	"time"
)

type lookupEntry struct {
	raw     []byte
	expires time.Time
}

// lookupCache keeps raw wizard lookup responses keyed by request path.
type lookupCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]lookupEntry
}

func newLookupCache(ttl time.Duration, now func() time.Time) *lookupCache {
	return &lookupCache{ttl: ttl, now: now, entries: make(map[string]lookupEntry)}
}

func (c *lookupCache) get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.raw, true
}

func (c *lookupCache) set(key string, raw []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = lookupEntry{raw: raw, expires: c.now().Add(c.ttl)}
}

// invalidate drops every entry whose key starts with prefix.
func (c *lookupCache) invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func (c *lookupCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
