package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the default in-process Store. Entries do not survive a
// restart, which matches the runtime-cache lifecycle: only the favorites
// store is durable.
type MemoryStore struct {
	mu     sync.RWMutex
	caches map[string]*memCache
}

// memCache holds one named cache: entries by key string plus the
// insertion order used for FIFO eviction.
type memCache struct {
	entries map[string]*Entry
	order   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		caches: make(map[string]*memCache),
	}
}

func (s *MemoryStore) Match(_ context.Context, name string, key Key) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.caches[name]
	if !ok {
		return nil, ErrCacheMiss
	}
	entry, ok := c.entries[key.String()]
	if !ok {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

func (s *MemoryStore) Put(_ context.Context, name string, key Key, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[name]
	if !ok {
		c = &memCache{entries: make(map[string]*Entry)}
		s.caches[name] = c
	}

	k := key.String()
	if _, exists := c.entries[k]; exists {
		// Re-insertion resets the key to newest
		c.removeFromOrder(k)
	}
	c.entries[k] = entry
	c.order = append(c.order, k)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[name]
	if !ok {
		return nil
	}
	k := key.String()
	if _, exists := c.entries[k]; !exists {
		return nil
	}
	delete(c.entries, k)
	c.removeFromOrder(k)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, name string) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.caches[name]
	if !ok {
		return nil, nil
	}
	keys := make([]Key, 0, len(c.order))
	for _, k := range c.order {
		key, err := ParseKey(k)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MemoryStore) DeleteCache(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.caches[name]
	delete(s.caches, name)
	return ok, nil
}

func (s *MemoryStore) ListCacheNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches = make(map[string]*memCache)
	return nil
}

// removeFromOrder drops one occurrence of k from the insertion order.
// Caller must hold the store's write lock.
func (c *memCache) removeFromOrder(k string) {
	for i, existing := range c.order {
		if existing == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
