package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a storage backend for named caches. Implementations must keep
// the keys of each named cache in insertion order: Keys returns oldest
// first, and a Put on an existing key moves it to the newest position.
//
// Two backends ship with this package: MemoryStore (default, per-process)
// and RedisStore (shared across instances).
type Store interface {
	// Match retrieves an entry by key from the named cache.
	// Returns ErrCacheMiss if the cache or key does not exist.
	// A match never refreshes the entry's eviction position.
	Match(ctx context.Context, name string, key Key) (*Entry, error)

	// Put stores an entry under key in the named cache, creating the
	// cache on first use. Overwrites reset the key to newest.
	Put(ctx context.Context, name string, key Key, entry *Entry) error

	// Delete removes a single entry. Deleting an absent key is a no-op.
	Delete(ctx context.Context, name string, key Key) error

	// Keys lists the named cache's keys, oldest inserted first.
	Keys(ctx context.Context, name string) ([]Key, error)

	// DeleteCache removes a named cache wholesale. Returns true if the
	// cache existed.
	DeleteCache(ctx context.Context, name string) (bool, error)

	// ListCacheNames returns every named cache known to the store.
	ListCacheNames(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}
