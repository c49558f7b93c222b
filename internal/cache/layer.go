package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"paricus-portal/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Category names one independently-expiring cache.
type Category string

const (
	// Pages holds result pages keyed by filters + limit + offset.
	Pages Category = "pages"
	// Counts holds aggregate counts keyed by filters alone.
	Counts Category = "counts"
	// Lookups holds distinct-value lists and single-record lookups.
	Lookups Category = "lookups"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdr_cache_hits_total",
		Help: "Cache hits by category.",
	}, []string{"category"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cdr_cache_misses_total",
		Help: "Cache misses by category.",
	}, []string{"category"})
	cacheFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cdr_cache_flushes_total",
		Help: "Administrative or shutdown flushes of every cache category.",
	})
)

var ErrUnknownCategory = errors.New("cache: unknown category")

// Layer groups the cache categories behind one lock so a flush is atomic for readers:
// no caller observes one category cleared while another still serves entries from before
// the flush.
//
// Every flush advances the epoch. Writers take a Ticket before doing their work; a write
// carrying an older epoch is dropped, so results computed against a pool that has since been
// torn down never repopulate the cache.
//
// The epoch is per process. Stores shared between replicas also record the shared generation
// in the Ticket, so a flush on another replica drops the write too.
type Layer struct {
	mu     sync.RWMutex
	epoch  uint64
	stores map[Category]Store
	shared Generational
}

// Ticket is the flush state observed before a query started.
type Ticket struct {
	Epoch uint64

	gen      int64
	genKnown bool
}

func NewLayer(pages, counts, lookups Store) *Layer {
	l := &Layer{
		epoch: 1,
		stores: map[Category]Store{
			Pages:   pages,
			Counts:  counts,
			Lookups: lookups,
		},
	}
	// Shared stores of one layer use one generation counter.
	if g, ok := pages.(Generational); ok {
		l.shared = g
	}
	return l
}

// NewMemoryLayer builds a per-process layer from cache config.
func NewMemoryLayer(cfg config.CacheConfig) *Layer {
	return NewLayer(
		NewMemoryStore(cfg.MaxEntries, cfg.PageTTL),
		NewMemoryStore(cfg.MaxEntries, cfg.CountTTL),
		NewMemoryStore(cfg.MaxEntries, cfg.LookupTTL),
	)
}

// NewRedisLayer builds a layer shared through Redis under namespace.
func NewRedisLayer(rdb *redis.Client, namespace string, cfg config.CacheConfig) *Layer {
	return NewLayer(
		NewRedisStore(rdb, namespace, Pages, cfg.PageTTL),
		NewRedisStore(rdb, namespace, Counts, cfg.CountTTL),
		NewRedisStore(rdb, namespace, Lookups, cfg.LookupTTL),
	)
}

// Epoch returns the current flush epoch.
func (l *Layer) Epoch() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch
}

// Get decodes the entry at key into dst. It reports false on a miss.
func (l *Layer) Get(ctx context.Context, cat Category, key string, dst any) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.stores[cat]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		cacheMissesTotal.WithLabelValues(string(cat)).Inc()
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache: decode %s entry: %w", cat, err)
	}
	cacheHitsTotal.WithLabelValues(string(cat)).Inc()
	return true, nil
}

// Begin records the current flush state. Pass the Ticket to Put once the result is ready.
func (l *Layer) Begin(ctx context.Context) Ticket {
	l.mu.RLock()
	t := Ticket{Epoch: l.epoch}
	shared := l.shared
	l.mu.RUnlock()

	if shared != nil {
		if gen, err := shared.Generation(ctx); err == nil {
			t.gen, t.genKnown = gen, true
		}
	}
	return t
}

// Put stores v at key unless the layer was flushed after t was taken, here or on a replica
// sharing the store. It reports whether the value was written.
func (l *Layer) Put(ctx context.Context, t Ticket, cat Category, key string, v any) (bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("cache: encode %s entry: %w", cat, err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if t.Epoch != l.epoch {
		return false, nil
	}
	s, ok := l.stores[cat]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	if g, ok := s.(Generational); ok {
		// Without a known generation the write could land after a remote flush.
		if !t.genKnown {
			return false, nil
		}
		return g.SetAt(ctx, t.gen, key, raw)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return false, err
	}
	return true, nil
}

// FlushAll drops every entry in every category and advances the epoch.
func (l *Layer) FlushAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.epoch++
	cacheFlushesTotal.Inc()

	var errs []error
	for cat, s := range l.stores {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cache: flush %s: %w", cat, err))
		}
	}
	return errors.Join(errs...)
}

// TTLs reports the entry lifetime of every category.
func (l *Layer) TTLs() map[Category]time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[Category]time.Duration, len(l.stores))
	for cat, s := range l.stores {
		out[cat] = s.TTL()
	}
	return out
}
