// Package database owns the connections to the backing store.
//
// It handles:
//   - building a DSN from config (PostgreSQL through pgx, or SQLite)
//   - the bounded connection pool with its degraded fallback (Pool)
//   - transactional statement execution (Executor)
//   - partial update assembly (UpdateBuilder)
//   - wiring query tracing/logging (pgx tracelog) and New Relic (nrpgx5)
//   - Prometheus metrics for the pool and the executor
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deppfellow/station-api/internal/config"
	loggerConfig "github.com/deppfellow/station-api/internal/logger"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// Database bundles what the repositories need: the pool, the executor
// running on it and the SQL dialect of the backend.
type Database struct {
	Pool     *Pool
	Executor *Executor
	Dialect  Dialect
	Metrics  *Metrics
	log      *zerolog.Logger
}

// multiTracer allows chaining multiple tracers.
//
// pgx supports a single Tracer in ConnConfig. This adapter runs the New Relic
// tracer and the local tracelog.TraceLog side by side.
type multiTracer struct {
	tracers []any
}

// TraceQueryStart implements pgx.QueryTracer, threading the context through
// every tracer that supports it.
func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryStart(context.Context, *pgx.Conn, pgx.TraceQueryStartData) context.Context
		}); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

// TraceQueryEnd implements pgx.QueryTracer.
func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData)
		}); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// DatabasePingTimeout defines the number of seconds to wait for the initial
// pool to answer before falling back to degraded mode.
const DatabasePingTimeout = 10

// New builds the pool, the executor and the metrics for cfg.
//
// Inputs:
//   - cfg: application config (driver, host, credentials, pool settings)
//   - logger: main app logger
//   - loggerService: optional New Relic service (nil if not configured)
//   - reg: Prometheus registerer, nil to skip metric registration
//
// An unreachable database does not fail startup: the pool comes up in
// degraded mode and every request opens its own connection. Only an invalid
// configuration is an error.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService, reg prometheus.Registerer) (*Database, error) {
	dialect, err := ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	var open Opener
	switch dialect {
	case Postgres:
		open, err = postgresOpener(cfg, logger, loggerService)
	case SQLite:
		open = sqliteOpener(cfg.Database.Name)
	}
	if err != nil {
		return nil, err
	}

	obs := cfg.Observability
	if obs == nil {
		obs = config.DefaultObservabilityConfig()
	}

	metrics := NewMetrics(obs.Metrics.Namespace, reg)

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()

	db := Open(ctx, dialect, open, PoolOptions{
		Size:            cfg.Database.PoolSize,
		AcquireTimeout:  cfg.Database.AcquireTimeout,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, ExecutorOptions{
		QueryTimeout:       cfg.Database.QueryTimeout,
		SlowQueryThreshold: obs.Logging.SlowQueryThreshold,
	}, logger, metrics)

	if reg != nil && db.Pool.DB() != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db.Pool.DB(), cfg.Database.Name))
	}

	logger.Info().
		Str("driver", string(dialect)).
		Str("pool_mode", db.Pool.Mode()).
		Msg("database initialized")

	return db, nil
}

// Open builds the pool on open and the executor running on it.
//
// It never fails: when open returns an error the pool starts in degraded
// mode (see NewPool). metrics may be nil.
func Open(
	ctx context.Context,
	dialect Dialect,
	open Opener,
	poolOpts PoolOptions,
	execOpts ExecutorOptions,
	logger *zerolog.Logger,
	metrics *Metrics,
) *Database {
	pool := NewPool(ctx, open, poolOpts, logger, metrics)

	return &Database{
		Pool:     pool,
		Executor: NewExecutor(pool, execOpts, logger, metrics),
		Dialect:  dialect,
		Metrics:  metrics,
		log:      logger,
	}
}

// postgresOpener parses the DSN once and attaches the tracers. Each call of
// the returned Opener builds a *sql.DB on the pgx stdlib driver and pings it.
func postgresOpener(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (Opener, error) {
	// Handles IPv6 correctly (adds brackets if needed).
	hostPort := net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port))

	// URL-encode the password so "pa:ss@word" cannot break the DSN.
	encodedPassword := url.QueryEscape(cfg.Database.Password)

	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		encodedPassword,
		hostPort,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}

	if loggerService != nil && loggerService.GetApplication() != nil {
		connConfig.Tracer = nrpgx5.NewTracer()
	}

	// SQL query logging is very noisy, so it is only enabled in local env.
	if cfg.Primary.Env == "local" {
		globalLevel := logger.GetLevel()
		pgxLogger := loggerConfig.NewPgxLogger(globalLevel)

		localTracer := &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(pgxLogger),
			LogLevel: tracelog.LogLevel(loggerConfig.GetPgxTraceLogLevel(globalLevel)),
		}

		if connConfig.Tracer != nil {
			connConfig.Tracer = &multiTracer{
				tracers: []any{connConfig.Tracer, localTracer},
			}
		} else {
			connConfig.Tracer = localTracer
		}
	}

	return PgxOpener(connConfig), nil
}

// PgxOpener returns an Opener building a *sql.DB on the pgx stdlib driver
// from connConfig, tracer included, and pinging it.
func PgxOpener(connConfig *pgx.ConnConfig) Opener {
	return func(ctx context.Context) (*sql.DB, error) {
		db := stdlib.OpenDB(*connConfig)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	}
}

// SQLiteDSN turns a database file path into a modernc.org/sqlite DSN with
// foreign keys on, a busy timeout, and write-locking transactions.
func SQLiteDSN(path string) string {
	params := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func sqliteOpener(path string) Opener {
	dsn := SQLiteDSN(path)
	return func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open(SQLite.DriverName(), dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	}
}

// NewSQLite builds a Database on an SQLite file without config or metrics
// registration. It is used by tests and local tooling.
func NewSQLite(path string, opts PoolOptions, execOpts ExecutorOptions, logger *zerolog.Logger) *Database {
	return Open(context.Background(), SQLite, sqliteOpener(path), opts, execOpts, logger, NewMetrics("station", nil))
}

// Ping checks the database through the pool.
func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close closes the connection pool.
func (db *Database) Close() error {
	db.log.Info().Msg("closing database connection pool")
	return db.Pool.Close()
}
