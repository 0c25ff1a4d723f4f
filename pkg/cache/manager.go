package cache

import (
	"context"
	"fmt"
)

// Manager hands out handles to named caches over a Store backend.
type Manager struct {
	store Store
}

// NewManager creates a cache manager over the given store backend.
func NewManager(store Store) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{store: store}
}

// Open returns a handle to the named cache. The cache itself is created
// lazily on first Put.
func (m *Manager) Open(name string) *Cache {
	return &Cache{name: name, store: m.store}
}

// DeleteCache removes a named cache wholesale. Returns true if it existed.
func (m *Manager) DeleteCache(ctx context.Context, name string) (bool, error) {
	return m.store.DeleteCache(ctx, name)
}

// ListCacheNames returns every named cache the backend knows about.
func (m *Manager) ListCacheNames(ctx context.Context) ([]string, error) {
	return m.store.ListCacheNames(ctx)
}

// Store exposes the underlying backend (for testing).
func (m *Manager) Store() Store {
	return m.store
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Cache is a handle to one named cache.
type Cache struct {
	name  string
	store Store
}

// Name returns the cache's name, generation suffix included.
func (c *Cache) Name() string {
	return c.name
}

// Match retrieves an entry by key. Returns ErrCacheMiss when absent.
// Matching never refreshes the entry's eviction position.
func (c *Cache) Match(ctx context.Context, key Key) (*Entry, error) {
	entry, err := c.store.Match(ctx, c.name, key)
	if err != nil {
		if err == ErrCacheMiss {
			CacheMisses.WithLabelValues(c.name).Inc()
			return nil, err
		}
		CacheErrors.WithLabelValues("match").Inc()
		return nil, err
	}
	CacheHits.WithLabelValues(c.name).Inc()
	return entry, nil
}

// Put stores an entry, overwriting any existing entry for the key and
// resetting it to newest.
func (c *Cache) Put(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if err := c.store.Put(ctx, c.name, key, entry); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return err
	}
	CacheSize.WithLabelValues(c.name).Add(float64(entry.Size()))
	return nil
}

// Delete removes one entry. Deleting an absent key is a no-op.
func (c *Cache) Delete(ctx context.Context, key Key) error {
	if err := c.store.Delete(ctx, c.name, key); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// Keys lists the cache's keys, oldest inserted first.
func (c *Cache) Keys(ctx context.Context) ([]Key, error) {
	return c.store.Keys(ctx, c.name)
}

// DeleteOldest evicts the oldest-inserted entry, if any.
func (c *Cache) DeleteOldest(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, c.name)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, c.name, keys[0]); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	CacheEvictions.WithLabelValues(c.name).Inc()
	return nil
}

// EnforceLimit evicts oldest-first until the cache holds at most
// maxEntries. The key list is re-read after every deletion, so inserts
// that land mid-enforcement are tolerated: the loop re-measures and keeps
// deleting until the bound holds. Eviction is strict FIFO by insertion;
// matches never refresh an entry's position.
func (c *Cache) EnforceLimit(ctx context.Context, maxEntries int) error {
	if maxEntries < 0 {
		maxEntries = 0
	}
	for {
		keys, err := c.store.Keys(ctx, c.name)
		if err != nil {
			return err
		}
		if len(keys) <= maxEntries || len(keys) == 0 {
			return nil
		}
		if err := c.store.Delete(ctx, c.name, keys[0]); err != nil {
			CacheErrors.WithLabelValues("delete").Inc()
			return err
		}
		CacheEvictions.WithLabelValues(c.name).Inc()
	}
}
