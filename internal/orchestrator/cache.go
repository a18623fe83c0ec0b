package orchestrator

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 30 * time.Second
)

// CacheConfig configures the per-chat artifact list cache.
type CacheConfig struct {
	// MaxSize is the maximum number of chats with a cached list.
	MaxSize int
	// TTL is how long a cached list remains valid.
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for list caching.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: defaultCacheMaxSize, TTL: defaultCacheTTL}
}

type listEntry struct {
	list     ArtifactList
	storedAt time.Time
}

// listCache memoizes ArtifactList snapshots per chat. The clock is injected
// so tests can advance time without sleeping; there is no ambient singleton.
type listCache struct {
	cache *lru.Cache[string, listEntry]
	ttl   time.Duration
	now   func() time.Time
}

func newListCache(config CacheConfig, now func() time.Time) (*listCache, error) {
	if config.MaxSize <= 0 {
		config.MaxSize = defaultCacheMaxSize
	}
	if config.TTL <= 0 {
		config.TTL = defaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	cache, err := lru.New[string, listEntry](config.MaxSize)
	if err != nil {
		return nil, err
	}
	return &listCache{cache: cache, ttl: config.TTL, now: now}, nil
}

func (c *listCache) get(chatID string) (ArtifactList, bool) {
	entry, ok := c.cache.Get(chatID)
	if !ok {
		return ArtifactList{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.cache.Remove(chatID)
		return ArtifactList{}, false
	}
	return entry.list, true
}

func (c *listCache) put(chatID string, list ArtifactList) {
	c.cache.Add(chatID, listEntry{list: list, storedAt: c.now()})
}

func (c *listCache) invalidate(chatID string) {
	c.cache.Remove(chatID)
}
