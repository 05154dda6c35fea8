package classify

import (
	"sync"
)

const DefaultCacheCapacity = 1000

// ResultCache is a bounded in-process cache of classification results keyed
// by content hash. Eviction is oldest-inserted-first, not LRU: the cache is
// a cost shield against reclassifying identical content, and insertion
// order is a good enough proxy for staleness.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]ClassificationResult
	order    []string
}

func NewResultCache(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ResultCache{
		capacity: capacity,
		entries:  make(map[string]ClassificationResult, capacity),
	}
}

// Get returns a copy of the cached result for the content hash, if present
func (c *ResultCache) Get(contentHash string) (*ClassificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[contentHash]
	if !ok {
		return nil, false
	}
	return &result, true
}

// Put stores a result, evicting the oldest-inserted entry when full
func (c *ResultCache) Put(contentHash string, result *ClassificationResult) {
	if result == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[contentHash]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, contentHash)
	}

	c.entries[contentHash] = *result
}

// Len returns the number of cached entries
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
