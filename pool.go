package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	connectTimeout  = 10 * time.Second
	acquireTimeout  = 5 * time.Second
	connMaxLifetime = time.Hour
)

// ErrPoolExhausted is returned when no connection becomes available within
// the acquire timeout. It surfaces as an operation-level failure; the process
// keeps serving.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// Pool is a bounded set of reusable MySQL connections shared by all
// operations. The semaphore tracks borrowed connections so an exhausted pool
// fails fast instead of queueing callers indefinitely behind database/sql's
// internal wait list.
type Pool struct {
	db  *sql.DB
	sem *semaphore.Weighted
}

// NewPool opens the database and verifies connectivity. An unreachable server
// or bad credentials fail here, which aborts startup; there is no retry.
func NewPool(ctx context.Context, cfg *Config) (*Pool, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Pool{
		db:  db,
		sem: semaphore.NewWeighted(int64(cfg.PoolSize)),
	}, nil
}

// Acquire checks out a dedicated connection for one operation. Operations
// that switch database context with USE need their follow-up statements on
// the same session, so a *sql.Conn is handed out rather than running on the
// shared handle. Callers must defer Release so the connection returns to the
// pool on every exit path.
func (p *Pool) Acquire(ctx context.Context) (*PooledConn, error) {
	semCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()
	if err := p.sem.Acquire(semCtx, 1); err != nil {
		return nil, ErrPoolExhausted
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("failed to obtain connection: %w", err)
	}
	return &PooledConn{conn: conn, pool: p}, nil
}

// Close shuts down all pooled connections. Invoked exactly once, at process
// termination.
func (p *Pool) Close() error {
	return p.db.Close()
}

// PooledConn is a connection borrowed for the duration of a single operation.
type PooledConn struct {
	conn     *sql.Conn
	pool     *Pool
	released bool
}

// Release returns the connection to the pool. Calling it more than once is a
// no-op so it is safe to defer.
func (c *PooledConn) Release() {
	if c.released {
		return
	}
	c.released = true
	c.conn.Close()
	c.pool.sem.Release(1)
}

func (c *PooledConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *PooledConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}
