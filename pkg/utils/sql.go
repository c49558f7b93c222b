package utils

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// SQLPoolConfig controls database/sql pool behavior.
// Keep it config-driven; defaults should be safe and conservative.
type SQLPoolConfig struct {
	// MinConns connections are opened at startup and kept open while the pool lives.
	MinConns int
	// MaxConns is the hard ceiling; callers block beyond it.
	MaxConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

func (c SQLPoolConfig) withDefaults() SQLPoolConfig {
	out := c
	if out.MaxConns <= 0 {
		out.MaxConns = 10
	}
	if out.MinConns < 0 {
		out.MinConns = 0
	}
	if out.MinConns > out.MaxConns {
		out.MinConns = out.MaxConns
	}
	if out.ConnMaxLifetime <= 0 {
		out.ConnMaxLifetime = 30 * time.Minute
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 5 * time.Minute
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 5 * time.Second
	}
	return out
}

// OpenSQL opens a database/sql pool, verifies it with a ping and warms MinConns connections.
// driverName should typically be "pgx" (pgx stdlib) or "sqlite" (modernc).
// dsn must not be logged; it contains secrets.
//
// database/sql has no idle floor, so for "pgx" the connections live in a pgxpool that keeps
// MinConns open and reaps only the ones above it. Other drivers keep every idle connection
// until ConnMaxLifetime when MinConns is set.
func OpenSQL(ctx context.Context, driverName, dsn string, pool SQLPoolConfig) (*sql.DB, error) {
	pool = pool.withDefaults()

	var db *sql.DB
	if driverName == "pgx" {
		pcfg, err := pgxPoolConfig(dsn, pool)
		if err != nil {
			return nil, err
		}
		// The pool outlives the open call; its background top-up must not inherit ctx's deadline.
		pp, err := pgxpool.NewWithConfig(context.WithoutCancel(ctx), pcfg)
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(poolConnector{Connector: stdlib.GetPoolConnector(pp), pool: pp})
		// Idle connections belong to the pgxpool, not database/sql.
		db.SetMaxIdleConns(0)
	} else {
		var err error
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxIdleConns(pool.MaxConns)
		if pool.MinConns > 0 {
			db.SetConnMaxIdleTime(0)
		} else {
			db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
		}
	}
	db.SetMaxOpenConns(pool.MaxConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := HealthCheck(ctx, db, pool.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := warm(ctx, db, pool.MinConns, pool.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func pgxPoolConfig(dsn string, pool SQLPoolConfig) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx dsn: %w", err)
	}
	cfg.MinConns = int32(pool.MinConns)
	cfg.MaxConns = int32(pool.MaxConns)
	cfg.MaxConnIdleTime = pool.ConnMaxIdleTime
	cfg.MaxConnLifetime = pool.ConnMaxLifetime
	cfg.HealthCheckPeriod = min(pool.ConnMaxIdleTime, time.Minute)
	return cfg, nil
}

// poolConnector closes its pgxpool when the *sql.DB built on it is closed.
type poolConnector struct {
	driver.Connector
	pool *pgxpool.Pool
}

func (c poolConnector) Close() error {
	c.pool.Close()
	return nil
}

// HealthCheck pings the DB with a timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// warm checks out n connections at once and returns them to the idle set.
func warm(ctx context.Context, db *sql.DB, n int, timeout time.Duration) error {
	if n <= 1 {
		return nil
	}
	warmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for i := 0; i < n; i++ {
		c, err := db.Conn(warmCtx)
		if err != nil {
			return fmt.Errorf("db warm-up failed after %d connections: %w", i, err)
		}
		conns = append(conns, c)
	}
	return nil
}
