/*
Package cache provides LRUCache, a thread-safe in-memory byte-range cache
keyed by (path, offset, size). RemoteFile uses one instance as its
read-ahead block cache.

# Eviction

Entries are evicted least-recently-used first whenever the total cached
bytes exceed MaxSize or the entry count exceeds MaxEntries. Entries older
than TTL (measured from their last Put) are dropped when read and by a
background sweep every CleanupInterval (five minutes when unset). The
EvictionPolicy field is stored but not consulted: eviction is always plain
LRU. There is a single in-memory level; nothing is persisted or
compressed.

# Usage

	c := cache.NewLRUCache(&cache.CacheConfig{
		MaxSize:    64 * 1024 * 1024,
		MaxEntries: 1024,
		TTL:        5 * time.Minute,
	})

	c.Put(path, offset, data)
	if block := c.Get(path, offset, int64(len(data))); block != nil {
		// hit: block is a copy of the cached bytes
	}

	c.Delete(path) // drops every entry whose key starts with path

	stats := c.Stats()
	fmt.Printf("hit rate %.2f%%\n", stats.HitRate*100)

Get looks an entry up by the exact (path, offset, size) triple; a read of
a different range inside a cached block is a miss.
*/
package cache




