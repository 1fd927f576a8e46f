package assistant

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry struct {
	reply   string
	created time.Time
}

// Cache keeps model replies for a short time. Expired entries are dropped
// when they are looked up; the LRU bound handles the rest.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	clock   Clock
}

func NewCache(size int, ttl time.Duration, clock Clock) (*Cache, error) {
	if clock == nil {
		clock = SystemClock
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, ttl: ttl, clock: clock}, nil
}

// CacheKey is role-scoped and ignores case and surrounding spaces.
func CacheKey(role Role, message string) string {
	return string(role) + ":" + strings.ToLower(strings.TrimSpace(message))
}

func (c *Cache) Get(key string) (string, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	if c.clock.Now().Sub(e.created) >= c.ttl {
		c.entries.Remove(key)
		return "", false
	}
	return e.reply, true
}

func (c *Cache) Put(key, reply string) {
	c.entries.Add(key, cacheEntry{reply: reply, created: c.clock.Now()})
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
