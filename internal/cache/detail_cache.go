package cache

import "sync"

// DetailEntry is the metadata a detail-page fetch can contribute to a
// listing entry.
type DetailEntry struct {
	Director       string
	Year           int
	RuntimeMinutes int
	Attributes     []string
}

// DetailCache memoizes detail-page lookups for the lifetime of one scrape
// job. It is shared across a source's concurrent fetch workers; there is no
// eviction because the cache dies with the job.
type DetailCache struct {
	mu      sync.Mutex
	entries map[string]DetailEntry
}

func NewDetailCache() *DetailCache {
	return &DetailCache{entries: make(map[string]DetailEntry)}
}

func (c *DetailCache) Get(key string) (DetailEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Put records a result, including negative ones, so a failing detail page is
// only fetched once per job.
func (c *DetailCache) Put(key string, entry DetailEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

func (c *DetailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
