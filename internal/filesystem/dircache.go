package filesystem

import (
	"strings"
	"sync"

	"github.com/adlsfs/adlsfs/pkg/path"
)

// DirCache memoizes Path -> ordered listing. A key's value is authoritative
// only until the next mutation on any path whose parent equals the key.
//
// Grounded on the teacher's internal/cache.LRUCache (mutex-guarded map with
// explicit Delete-by-prefix) generalized from byte-range caching to listing
// caching — no eviction policy is needed here since listings are small and
// short-lived relative to process lifetime, so a plain map suffices where the
// block cache needs LRU bounding.
type DirCache struct {
	mu      sync.RWMutex
	entries map[string][]DirEntry
}

// NewDirCache constructs an empty DirCache.
func NewDirCache() *DirCache {
	return &DirCache{entries: make(map[string][]DirEntry)}
}

// Get returns the cached listing for path p, if present.
func (c *DirCache) Get(p string) ([]DirEntry, bool) {
	key := path.Clean(p)
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, ok := c.entries[key]
	return entries, ok
}

// Set memoizes the listing for path p.
func (c *DirCache) Set(p string, entries []DirEntry) {
	key := path.Clean(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entries
}

// Invalidate drops the cached listing for path p's parent directory, so the
// next Ls/Info call re-fetches it.
func (c *DirCache) Invalidate(p string) {
	key := path.Parent(path.Clean(p))
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix drops every cached key that is p itself or has p+"/" as a
// prefix, used after a recursive Rm.
func (c *DirCache) InvalidatePrefix(p string) {
	prefix := path.Clean(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			delete(c.entries, key)
		}
	}
}

// replaceEntry splices entry into the parent's cached listing, replacing a
// stale entry with the same Name or appending if absent. No-op if the parent
// is not currently cached.
func (c *DirCache) replaceEntry(parent string, entry DirEntry) {
	key := path.Clean(parent)
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.entries[key]
	if !ok {
		return
	}
	for i, e := range entries {
		if e.Name == entry.Name {
			entries[i] = entry
			c.entries[key] = entries
			return
		}
	}
	c.entries[key] = append(entries, entry)
}
