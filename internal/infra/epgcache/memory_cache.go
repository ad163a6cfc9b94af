package epgcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/epg-server/internal/domain/epg"
)

type entry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryCache is a process local response cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

// Get implements epg.Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.body...), true, nil
}

// Set implements epg.Cache. A non positive ttl keeps the entry until Flush.
func (c *MemoryCache) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry{body: append([]byte(nil), body...), expiresAt: exp}
	c.mu.Unlock()
	return nil
}

// Flush implements epg.Cache.
func (c *MemoryCache) Flush(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ epg.Cache = (*MemoryCache)(nil)
