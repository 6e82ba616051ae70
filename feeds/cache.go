package feeds

import (
	"sync"
	"time"

	"multifeed/models"
)

// CacheKey is the single key the rendered network feed is cached under.
// There is one global feed per deployment, not one per blog or user.
const CacheKey = "multifeed:feed"

type cacheEntry struct {
	doc       *models.FeedDocument
	expiresAt time.Time
}

// DocumentCache is a TTL cache for rendered feed documents. Entries are
// atomic blobs: there is no partial invalidation, and an invalidated key is
// guaranteed to miss on the next read.
type DocumentCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewDocumentCache() *DocumentCache {
	return &DocumentCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached document for key, or false when the key is absent
// or its TTL has elapsed.
func (c *DocumentCache) Get(key string) (*models.FeedDocument, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		cacheMisses.Inc()
		return nil, false
	}

	cacheHits.Inc()
	return entry.doc, true
}

// Put stores the document under key for ttl, measured from now. A later Put
// for the same key wins over earlier ones.
func (c *DocumentCache) Put(key string, doc *models.FeedDocument, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		doc:       doc,
		expiresAt: c.now().Add(ttl),
	}
}

// Invalidate removes the entry immediately. Repeated invalidations collapse
// to the same effect as one.
func (c *DocumentCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	cacheInvalidations.Inc()
}
