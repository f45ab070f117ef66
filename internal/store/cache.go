package store

import (
	"context"
	"sync"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// CachedStore wraps a SnapshotStore with a write-through in-memory LRU cache
// for point lookups. List always goes to the inner store.
type CachedStore struct {
	inner   domain.SnapshotStore
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedStore creates a cache decorator around a store.
func NewCachedStore(inner domain.SnapshotStore, maxEntries int, metrics *observability.Metrics) *CachedStore {
	return &CachedStore{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Save writes through to the inner store and caches the snapshot only once
// the write has succeeded.
func (c *CachedStore) Save(ctx context.Context, snap domain.PredictionSnapshot) error {
	if err := c.inner.Save(ctx, snap); err != nil {
		return err
	}
	c.cache.put(snap.Slug, snap)
	return nil
}

func (c *CachedStore) Load(ctx context.Context, slug string) (domain.PredictionSnapshot, error) {
	if snap, ok := c.cache.get(slug); ok {
		c.metrics.StoreCache.WithLabelValues("hit").Inc()
		return snap, nil
	}
	c.metrics.StoreCache.WithLabelValues("miss").Inc()

	snap, err := c.inner.Load(ctx, slug)
	if err != nil {
		return snap, err
	}
	c.cache.put(slug, snap)
	return snap, nil
}

func (c *CachedStore) List(ctx context.Context) ([]string, error) {
	return c.inner.List(ctx)
}

// lruCache is a simple thread-safe LRU cache for snapshots.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.PredictionSnapshot
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.PredictionSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.PredictionSnapshot{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// put stores value unless the cache already holds a newer snapshot for key.
// A read that raced with a save must not overwrite the saved value.
func (c *lruCache) put(key string, value domain.PredictionSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if !value.GeneratedAt.Before(e.value.GeneratedAt) {
			e.value = value
		}
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
