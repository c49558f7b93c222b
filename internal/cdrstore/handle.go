// Package cdrstore owns the bounded connection pool to the external call-detail-record store.
//
// The store is read-only and owned by another team. When it is not configured the handle
// says so up front (Unconfigured) instead of attempting a connection, so callers can route
// to synthetic data without paying a connect timeout.
package cdrstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"paricus-portal/internal/config"
	"paricus-portal/pkg/utils"

	"golang.org/x/sync/singleflight"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	ErrPoolExhausted = errors.New("cdrstore: connection pool exhausted")
	ErrClosed        = errors.New("cdrstore: pool handle closed")
)

// State is the outcome of Acquire: either Configured or Unconfigured.
type State interface {
	isState()
}

// Configured carries a live pool.
type Configured struct {
	Pool *Pool
}

// Unconfigured means credentials are absent or placeholders. It is a routing signal, not an error.
type Unconfigured struct {
	Reason string
}

func (Configured) isState()   {}
func (Unconfigured) isState() {}

type opener func(ctx context.Context, driverName, dsn string, pool utils.SQLPoolConfig) (*sql.DB, error)

// Handle is the explicitly-owned pool handle passed to the gateway.
// The pool is opened lazily on the first Acquire and lives until Close.
type Handle struct {
	cfg  config.CDRConfig
	open opener

	dials singleflight.Group

	mu      sync.Mutex
	state   State
	closed  bool
	onClose []func(context.Context) error
}

type Option func(*Handle)

// WithCloseHook registers fn to run after the pool is released, e.g. a cache flush:
// cached results cannot be verified once the pool is gone.
func WithCloseHook(fn func(context.Context) error) Option {
	return func(h *Handle) {
		if fn != nil {
			h.onClose = append(h.onClose, fn)
		}
	}
}

func NewHandle(cfg config.CDRConfig, opts ...Option) *Handle {
	h := &Handle{cfg: cfg, open: utils.OpenSQL}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Acquire returns the pool state, opening the pool on first use.
//
// The configured/unconfigured decision is made once. Concurrent first callers share one open;
// each stops waiting when its own ctx ends. A failed open is returned to the caller and retried
// on the next Acquire. h.mu is never held across the dial.
func (h *Handle) Acquire(ctx context.Context) (State, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if h.state != nil {
		st := h.state
		h.mu.Unlock()
		return st, nil
	}
	if ok, reason := h.cfg.Configured(); !ok {
		h.state = Unconfigured{Reason: reason}
		h.mu.Unlock()
		return h.state, nil
	}
	h.mu.Unlock()

	// The shared dial must not die with whichever caller started it.
	res := h.dials.DoChan("open", func() (any, error) {
		return h.dial(context.WithoutCancel(ctx))
	})
	select {
	case r := <-res:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(State), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("cdrstore: waiting for pool open: %w", ctx.Err())
	}
}

func (h *Handle) dial(ctx context.Context) (State, error) {
	h.mu.Lock()
	if h.state != nil {
		st := h.state
		h.mu.Unlock()
		return st, nil
	}
	h.mu.Unlock()

	openCtx, cancel := context.WithTimeout(ctx, h.cfg.ConnectTimeout+h.cfg.AcquireTimeout)
	defer cancel()

	db, err := h.open(openCtx, h.cfg.Driver, h.cfg.DSN(), utils.SQLPoolConfig{
		MinConns:    h.cfg.PoolMin,
		MaxConns:    h.cfg.PoolMax,
		PingTimeout: h.cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("cdrstore: open %s pool: %w", h.cfg.Driver, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		_ = db.Close()
		return nil, ErrClosed
	}
	if h.state != nil {
		_ = db.Close()
		return h.state, nil
	}
	h.state = Configured{Pool: &Pool{
		db:             db,
		driver:         h.cfg.Driver,
		maxConns:       h.cfg.PoolMax,
		acquireTimeout: h.cfg.AcquireTimeout,
		requestTimeout: h.cfg.RequestTimeout,
	}}
	return h.state, nil
}

// Ping verifies connectivity. Unconfigured handles report that without dialing.
func (h *Handle) Ping(ctx context.Context) (State, error) {
	st, err := h.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if c, ok := st.(Configured); ok {
		if err := utils.HealthCheck(ctx, c.Pool.db, c.Pool.acquireTimeout+c.Pool.requestTimeout); err != nil {
			return st, err
		}
	}
	return st, nil
}

// Current returns the resolved state without opening anything; nil before first use.
func (h *Handle) Current() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Close drains and releases the pool, then runs close hooks. It is safe to call twice.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	st := h.state
	hooks := h.onClose
	h.mu.Unlock()

	var errs []error
	if c, ok := st.(Configured); ok {
		if err := c.Pool.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cdrstore: close pool: %w", err))
		}
	}
	for _, fn := range hooks {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pool is a bounded database/sql pool with acquisition and request timeouts.
type Pool struct {
	db             *sql.DB
	driver         string
	maxConns       int
	acquireTimeout time.Duration
	requestTimeout time.Duration
}

// Driver reports the database/sql driver name ("pgx" or "sqlite").
func (p *Pool) Driver() string { return p.driver }

// Stats exposes database/sql pool statistics.
func (p *Pool) Stats() sql.DBStats { return p.db.Stats() }

// Do checks out one connection, runs fn under the request timeout and releases the connection.
//
// Waiting for a connection is bounded by the acquire timeout; when that wait expires while
// every connection is in use the error wraps ErrPoolExhausted.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()
	return fn(reqCtx, conn)
}

func (p *Pool) acquire(ctx context.Context) (*sql.Conn, error) {
	acqCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acqCtx)
	if err == nil {
		return conn, nil
	}
	// Only our own acquire deadline counts as exhaustion; caller cancellation passes through.
	if ctx.Err() == nil && errors.Is(acqCtx.Err(), context.DeadlineExceeded) && p.db.Stats().InUse >= p.maxConns {
		return nil, fmt.Errorf("%w: no connection within %s (max %d)", ErrPoolExhausted, p.acquireTimeout, p.maxConns)
	}
	return nil, err
}
