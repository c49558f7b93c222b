// Package cache holds the gateway's result, count and lookup caches.
//
// Values are stored as encoded bytes so the in-process and Redis backends behave the same:
// a hit returns exactly the bytes that were written.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store is a single cache category with one TTL for all of its entries.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Flush(ctx context.Context) error
	TTL() time.Duration
}

// Generational is implemented by stores shared between processes. A flush anywhere advances
// the generation; SetAt writes only while gen is still current and reports whether it did.
type Generational interface {
	Generation(ctx context.Context) (int64, error)
	SetAt(ctx context.Context, gen int64, key string, value []byte) (bool, error)
}

// MemoryStore is a bounded per-process Store.
// Expired entries are swept in the background by the underlying LRU.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
	ttl time.Duration
}

func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl),
		ttl: ttl,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lru.Get(key)
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.lru.Add(key, value)
	return nil
}

func (s *MemoryStore) Flush(_ context.Context) error {
	s.lru.Purge()
	return nil
}

func (s *MemoryStore) TTL() time.Duration { return s.ttl }

// Len reports live entries; used by tests and diagnostics.
func (s *MemoryStore) Len() int { return s.lru.Len() }
