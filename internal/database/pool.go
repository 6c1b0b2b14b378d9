package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/deppfellow/station-api/internal/errs"
	"github.com/rs/zerolog"
)

// DefaultPoolSize is the number of connections kept by the pool when the
// configuration does not say otherwise.
const DefaultPoolSize = 5

// Opener builds a ready-to-use *sql.DB. It is called once to build the shared
// pool and, in degraded mode, once per Acquire.
type Opener func(ctx context.Context) (*sql.DB, error)

// PoolOptions bounds the pool.
type PoolOptions struct {
	Size            int
	AcquireTimeout  time.Duration
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Pool hands out database connections.
//
// In normal mode it wraps a single *sql.DB capped at Size open connections, so
// Acquire blocks while every connection is checked out. If the shared pool
// could not be built at startup the Pool stays usable in degraded mode: every
// Acquire opens a dedicated connection that is closed again on Release.
type Pool struct {
	db       *sql.DB
	open     Opener
	opts     PoolOptions
	degraded bool
	log      *zerolog.Logger
	metrics  *Metrics
}

// NewPool builds the shared pool with open. It never fails: when open returns
// an error the pool falls back to degraded mode and says so in the log and in
// the station_db_pool_degraded gauge.
func NewPool(ctx context.Context, open Opener, opts PoolOptions, logger *zerolog.Logger, metrics *Metrics) *Pool {
	if opts.Size <= 0 {
		opts.Size = DefaultPoolSize
	}

	p := &Pool{
		open:    open,
		opts:    opts,
		log:     logger,
		metrics: metrics,
	}

	db, err := open(ctx)
	if err != nil {
		p.degraded = true
		metrics.setDegraded(true)
		logger.Warn().
			Err(err).
			Int("pool_size", opts.Size).
			Msg("failed to create connection pool, falling back to direct connections")
		return p
	}

	db.SetMaxOpenConns(opts.Size)
	db.SetMaxIdleConns(opts.Size)
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	p.db = db
	metrics.setDegraded(false)
	logger.Info().Int("pool_size", opts.Size).Msg("connection pool ready")

	return p
}

// Degraded reports whether the pool is handing out direct connections.
func (p *Pool) Degraded() bool {
	return p.degraded
}

// Mode is "pooled" or "direct".
func (p *Pool) Mode() string {
	if p.degraded {
		return modeDirect
	}
	return modePooled
}

// Size is the configured upper bound of open pooled connections.
func (p *Pool) Size() int {
	return p.opts.Size
}

// DB exposes the shared *sql.DB, nil in degraded mode.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Conn is a connection checked out of a Pool. Callers must Release it.
type Conn struct {
	*sql.Conn
	mode    string
	release func() error
	once    sync.Once
	err     error
}

// Mode reports whether the connection came from the pool or was opened
// directly.
func (c *Conn) Mode() string {
	return c.mode
}

// Release gives the connection back. Calling it more than once is a no-op
// that returns the first result.
func (c *Conn) Release() error {
	c.once.Do(func() {
		c.err = c.release()
	})
	return c.err
}

// Acquire checks out a connection, waiting at most AcquireTimeout for one to
// become free. Failures are reported as *errs.ConnectionError.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.AcquireTimeout)
		defer cancel()
	}

	start := time.Now()

	if p.degraded {
		conn, err := p.acquireDirect(ctx)
		p.metrics.observeAcquire(modeDirect, err, time.Since(start))
		return conn, err
	}

	conn, err := p.db.Conn(ctx)
	p.metrics.observeAcquire(modePooled, err, time.Since(start))
	if err != nil {
		return nil, &errs.ConnectionError{Err: err}
	}

	// Closing a *sql.Conn returns it to the pool; the driver resets the
	// session before it is handed out again.
	return &Conn{Conn: conn, mode: modePooled, release: conn.Close}, nil
}

func (p *Pool) acquireDirect(ctx context.Context) (*Conn, error) {
	db, err := p.open(ctx)
	if err != nil {
		return nil, &errs.ConnectionError{Err: err}
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &errs.ConnectionError{Err: err}
	}

	return &Conn{
		Conn: conn,
		mode: modeDirect,
		release: func() error {
			return errors.Join(conn.Close(), db.Close())
		},
	}, nil
}

// Ping checks that the database answers, through the pool or through a
// direct connection in degraded mode.
func (p *Pool) Ping(ctx context.Context) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := conn.PingContext(ctx); err != nil {
		return &errs.ConnectionError{Err: err}
	}
	return nil
}

// Stats returns the shared pool statistics. The zero value is returned in
// degraded mode.
func (p *Pool) Stats() sql.DBStats {
	if p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// Close closes the shared pool. Connections still checked out are closed when
// released.
func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}
