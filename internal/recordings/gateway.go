package recordings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"paricus-portal/internal/cache"
	"paricus-portal/internal/cdrstore"
	"paricus-portal/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "cdr_query_duration_seconds",
	Help:    "Time to answer a recordings query on a cache miss, by operation and mode.",
	Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
}, []string{"op", "mode"})

// PoolSource hands out the CDR pool state. *cdrstore.Handle implements it.
type PoolSource interface {
	Acquire(ctx context.Context) (cdrstore.State, error)
	Ping(ctx context.Context) (cdrstore.State, error)
}

// Gateway answers recording searches from cache, the live CDR store, or the synthetic
// dataset when the store is not configured.
//
// A live failure is always returned to the caller as a *QueryError; only the absence of
// configuration routes to synthetic data.
type Gateway struct {
	pool  PoolSource
	cache *cache.Layer
	mock  *MockSource
	now   func() time.Time
}

type Option func(*Gateway)

func WithMockSource(m *MockSource) Option {
	return func(g *Gateway) { g.mock = m }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func NewGateway(pool PoolSource, layer *cache.Layer, opts ...Option) *Gateway {
	g := &Gateway{pool: pool, cache: layer, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	if g.mock == nil {
		g.mock = NewMockSource()
	}
	return g
}

// ListRecordings returns one page of records matching f, newest first, with the total
// number of matches.
func (g *Gateway) ListRecordings(ctx context.Context, f FilterSet, limit, offset int) (CachedPage, error) {
	if limit < 1 || offset < 0 {
		return CachedPage{}, fmt.Errorf("%w: limit must be positive and offset non-negative (limit=%d, offset=%d)",
			ErrInvalidFilter, limit, offset)
	}
	f = f.Normalize()
	pageKey, countKey := f.PageKey(limit, offset), f.CountKey()
	ticket := g.cache.Begin(ctx)

	var page CachedPage
	if g.cacheGet(ctx, cache.Pages, pageKey, &page) {
		return page, nil
	}

	start := time.Now()
	st, err := g.pool.Acquire(ctx)
	if err != nil {
		return CachedPage{}, g.fail(ctx, "list", start, err)
	}

	countCached := false
	switch st := st.(type) {
	case cdrstore.Unconfigured:
		records, total := g.mock.Generate(limit, offset, f)
		page = CachedPage{Records: records, TotalCount: total}
		g.observe(ctx, "list", ModeMock, start)

	case cdrstore.Configured:
		// A cached count for the same filters saves the full scan; otherwise both queries run.
		var known CachedCount
		countCached = g.cacheGet(ctx, cache.Counts, countKey, &known)
		records, total, err := livePage(ctx, st.Pool, f, limit, offset, countCached, known.TotalCount)
		if err != nil {
			return CachedPage{}, g.fail(ctx, "list", start, err)
		}
		page = CachedPage{Records: records, TotalCount: total}
		g.observe(ctx, "list", ModeLive, start)

	default:
		return CachedPage{}, g.fail(ctx, "list", start, fmt.Errorf("unexpected pool state %T", st))
	}

	page.CachedAt = g.now().UTC()
	g.cachePut(ctx, ticket, cache.Pages, pageKey, page)
	if !countCached {
		g.cachePut(ctx, ticket, cache.Counts, countKey, CachedCount{TotalCount: page.TotalCount, CachedAt: page.CachedAt})
	}
	return page, nil
}

// GetRecordingByID returns one visible record. Excluded or unknown ids give ErrNotFound.
func (g *Gateway) GetRecordingByID(ctx context.Context, id string) (CallRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return CallRecord{}, fmt.Errorf("%w: interaction id is required", ErrInvalidFilter)
	}
	return load(ctx, g, "get", cache.Lookups, "record:"+id,
		func() (CallRecord, error) {
			r, ok := g.mock.Get(id)
			if !ok {
				return CallRecord{}, fmt.Errorf("%w: interaction %q", ErrNotFound, id)
			}
			return r, nil
		},
		func(ctx context.Context, pool *cdrstore.Pool) (CallRecord, error) {
			rs, err := queryRecords(ctx, pool, SelectByID(DialectFor(pool.Driver()), id))
			if err != nil {
				return CallRecord{}, err
			}
			if len(rs) == 0 {
				return CallRecord{}, fmt.Errorf("%w: interaction %q", ErrNotFound, id)
			}
			return rs[0], nil
		},
	)
}

// CountRecordings returns the number of records matching f, through the count cache.
func (g *Gateway) CountRecordings(ctx context.Context, f FilterSet) (int, error) {
	f = f.Normalize()
	c, err := load(ctx, g, "count", cache.Counts, f.CountKey(),
		func() (CachedCount, error) {
			return CachedCount{TotalCount: g.mock.Count(f), CachedAt: g.now().UTC()}, nil
		},
		func(ctx context.Context, pool *cdrstore.Pool) (CachedCount, error) {
			n, err := queryCount(ctx, pool, DialectFor(pool.Driver()), f)
			return CachedCount{TotalCount: n, CachedAt: g.now().UTC()}, err
		},
	)
	return c.TotalCount, err
}

// ListDistinctAgentNames returns the sorted agent names of visible records.
func (g *Gateway) ListDistinctAgentNames(ctx context.Context) ([]string, error) {
	return g.distinct(ctx, "agents", "agentname")
}

// ListDistinctCallTypes returns the sorted call types of visible records.
func (g *Gateway) ListDistinctCallTypes(ctx context.Context) ([]string, error) {
	return g.distinct(ctx, "call_types", "calltype")
}

// ListDistinctTags returns the distinct tag strings of visible records, each with its tenant.
func (g *Gateway) ListDistinctTags(ctx context.Context) ([]TagInfo, error) {
	tags, err := g.distinct(ctx, "tags", "tags")
	if err != nil {
		return nil, err
	}
	out := make([]TagInfo, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagInfo{Tag: t, CompanyName: ResolveTenant(t)})
	}
	return out, nil
}

func (g *Gateway) distinct(ctx context.Context, op, column string) ([]string, error) {
	return load(ctx, g, op, cache.Lookups, "distinct:"+column,
		func() ([]string, error) { return g.mock.Distinct(column) },
		func(ctx context.Context, pool *cdrstore.Pool) ([]string, error) {
			q, err := SelectDistinct(DialectFor(pool.Driver()), column)
			if err != nil {
				return nil, err
			}
			return queryStrings(ctx, pool, q)
		},
	)
}

// TestConnectivity pings the store. It never returns an error; failures are in the result.
func (g *Gateway) TestConnectivity(ctx context.Context) Connectivity {
	start := time.Now()
	st, err := g.pool.Ping(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.From(ctx).Warn("cdr connectivity check failed",
			"elapsed_ms", elapsed.Milliseconds(), "unavailable", cdrstore.IsUnavailable(err), "err", err)
		return Connectivity{OK: false, Mode: ModeLive, Message: fmt.Sprintf("connection failed after %s: %v", elapsed.Round(time.Millisecond), err)}
	}
	switch st := st.(type) {
	case cdrstore.Unconfigured:
		return Connectivity{OK: false, Mode: ModeMock, Message: "CDR store not configured (" + st.Reason + "); serving synthetic recordings"}
	case cdrstore.Configured:
		return Connectivity{OK: true, Mode: ModeLive, Message: fmt.Sprintf("connected to %s store in %s", st.Pool.Driver(), elapsed.Round(time.Millisecond))}
	}
	return Connectivity{OK: false, Message: "unknown pool state"}
}

// ClearCache drops every cached page, count and lookup.
func (g *Gateway) ClearCache(ctx context.Context) error {
	if err := g.cache.FlushAll(ctx); err != nil {
		logger.From(ctx).Error("recordings cache flush failed", "err", err)
		return err
	}
	logger.From(ctx).Info("recordings cache flushed", "epoch", g.cache.Epoch())
	return nil
}

// CacheEpoch returns the current cache flush epoch.
func (g *Gateway) CacheEpoch() uint64 { return g.cache.Epoch() }

// CacheTTLs reports how long entries of each cache category live.
func (g *Gateway) CacheTTLs() map[cache.Category]time.Duration { return g.cache.TTLs() }

// load is the cache-then-source path shared by the single-query operations.
// ErrNotFound and ErrInvalidFilter pass through; any other live error becomes a *QueryError.
func load[T any](
	ctx context.Context,
	g *Gateway,
	op string,
	cat cache.Category,
	key string,
	fromMock func() (T, error),
	fromLive func(context.Context, *cdrstore.Pool) (T, error),
) (T, error) {
	var v T
	ticket := g.cache.Begin(ctx)
	if g.cacheGet(ctx, cat, key, &v) {
		return v, nil
	}

	var zero T
	start := time.Now()
	st, err := g.pool.Acquire(ctx)
	if err != nil {
		return zero, g.fail(ctx, op, start, err)
	}

	mode := ModeLive
	switch st := st.(type) {
	case cdrstore.Unconfigured:
		mode = ModeMock
		v, err = fromMock()
	case cdrstore.Configured:
		v, err = fromLive(ctx, st.Pool)
	default:
		err = fmt.Errorf("unexpected pool state %T", st)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidFilter) {
			return zero, err
		}
		return zero, g.fail(ctx, op, start, err)
	}

	g.observe(ctx, op, mode, start)
	g.cachePut(ctx, ticket, cat, key, v)
	return v, nil
}

// Cache errors degrade to a miss or a skipped write; the store stays authoritative.
func (g *Gateway) cacheGet(ctx context.Context, cat cache.Category, key string, dst any) bool {
	hit, err := g.cache.Get(ctx, cat, key, dst)
	if err != nil {
		logger.From(ctx).Warn("recordings cache read failed", "category", cat, "err", err)
		return false
	}
	return hit
}

func (g *Gateway) cachePut(ctx context.Context, t cache.Ticket, cat cache.Category, key string, v any) {
	wrote, err := g.cache.Put(ctx, t, cat, key, v)
	if err != nil {
		logger.From(ctx).Warn("recordings cache write failed", "category", cat, "err", err)
		return
	}
	if !wrote {
		logger.From(ctx).Debug("recordings cache write dropped after flush", "category", cat)
	}
}

func (g *Gateway) fail(ctx context.Context, op string, start time.Time, err error) error {
	qe := &QueryError{Op: op, Elapsed: time.Since(start), Err: err}
	logger.From(ctx).Error("recordings query failed",
		"op", op,
		"elapsed_ms", qe.Elapsed.Milliseconds(),
		"unavailable", qe.Unavailable(),
		"err", err,
	)
	return qe
}

func (g *Gateway) observe(ctx context.Context, op, mode string, start time.Time) {
	elapsed := time.Since(start)
	queryDuration.WithLabelValues(op, mode).Observe(elapsed.Seconds())
	logger.From(ctx).Debug("recordings query", slog.String("op", op), slog.String("mode", mode), slog.Int64("elapsed_ms", elapsed.Milliseconds()))
}

// livePage runs the data and count queries concurrently on separate connections and waits
// for both. When the total is already known only the data query runs.
func livePage(ctx context.Context, pool *cdrstore.Pool, f FilterSet, limit, offset int, haveTotal bool, knownTotal int) ([]CallRecord, int, error) {
	d := DialectFor(pool.Driver())

	var (
		eg      errgroup.Group
		records []CallRecord
		total   = knownTotal
	)
	eg.Go(func() error {
		rs, err := queryRecords(ctx, pool, SelectPage(d, f, limit, offset))
		records = rs
		return err
	})
	if !haveTotal {
		eg.Go(func() error {
			n, err := queryCount(ctx, pool, d, f)
			total = n
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func queryCount(ctx context.Context, pool *cdrstore.Pool, d Dialect, f FilterSet) (int, error) {
	q := SelectCount(d, f)
	var n int
	err := pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, q.SQL, q.Args...).Scan(&n)
	})
	return n, err
}

func queryRecords(ctx context.Context, pool *cdrstore.Pool, q Query) ([]CallRecord, error) {
	out := []CallRecord{}
	err := pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func queryStrings(ctx context.Context, pool *cdrstore.Pool, q Query) ([]string, error) {
	out := []string{}
	err := pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v sql.NullString
			if err := rows.Scan(&v); err != nil {
				return err
			}
			if v.Valid {
				out = append(out, v.String)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
