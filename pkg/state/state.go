// Package state implements a generic partition of a set of objects into named
// buckets, used by the transfer engine to track file- and chunk-level progress
// without duplicating the same map-plus-mutex bookkeeping at each level.
package state

import "sync"

// Manager partitions a set of comparable items into named buckets. The zero
// value is not usable; construct with New.
type Manager[T comparable] struct {
	mu      sync.RWMutex
	bucket  map[T]string
	members map[string]map[T]struct{}
}

// New returns an empty Manager.
func New[T comparable]() *Manager[T] {
	return &Manager[T]{
		bucket:  make(map[T]string),
		members: make(map[string]map[T]struct{}),
	}
}

// Set moves item into bucket, removing it from whatever bucket it previously
// occupied. Setting the same bucket twice is a no-op beyond bookkeeping.
func (m *Manager[T]) Set(item T, bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.bucket[item]; ok {
		if old == bucket {
			return
		}
		delete(m.members[old], item)
	}
	m.bucket[item] = bucket
	if m.members[bucket] == nil {
		m.members[bucket] = make(map[T]struct{})
	}
	m.members[bucket][item] = struct{}{}
}

// Get returns the bucket item currently occupies.
func (m *Manager[T]) Get(item T) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bucket[item]
	return b, ok
}

// Remove drops item from the manager entirely.
func (m *Manager[T]) Remove(item T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bucket[item]; ok {
		delete(m.members[b], item)
		delete(m.bucket, item)
	}
}

// Iterate returns a snapshot of the items currently in bucket.
func (m *Manager[T]) Iterate(bucket string) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.members[bucket]))
	for item := range m.members[bucket] {
		out = append(out, item)
	}
	return out
}

// Count returns the number of items currently in bucket.
func (m *Manager[T]) Count(bucket string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members[bucket])
}

// ContainsAll reports whether bucket is non-empty and holds every item the
// manager knows about.
func (m *Manager[T]) ContainsAll(bucket string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.members[bucket])
	return n > 0 && n == len(m.bucket)
}

// ContainsNone reports whether every listed bucket is empty.
func (m *Manager[T]) ContainsNone(buckets ...string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range buckets {
		if len(m.members[b]) > 0 {
			return false
		}
	}
	return true
}

// Len returns the total number of tracked items across all buckets.
func (m *Manager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bucket)
}

// Snapshot returns a copy of the item->bucket mapping, for persistence.
func (m *Manager[T]) Snapshot() map[T]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[T]string, len(m.bucket))
	for k, v := range m.bucket {
		out[k] = v
	}
	return out
}

// Restore replaces the manager's contents with a previously captured
// Snapshot, used when resuming a persisted transfer client.
func (m *Manager[T]) Restore(snapshot map[T]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bucket = make(map[T]string, len(snapshot))
	m.members = make(map[string]map[T]struct{})
	for item, bucket := range snapshot {
		m.bucket[item] = bucket
		if m.members[bucket] == nil {
			m.members[bucket] = make(map[T]struct{})
		}
		m.members[bucket][item] = struct{}{}
	}
}
