package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/deppfellow/station-api/internal/errs"
	"github.com/rs/zerolog"
)

// FetchMode selects how many rows Execute reads back.
type FetchMode int

const (
	// FetchNone runs a statement for its side effects only.
	FetchNone FetchMode = iota
	// FetchOne reads at most the first row.
	FetchOne
	// FetchAll reads every row.
	FetchAll
)

func (m FetchMode) String() string {
	switch m {
	case FetchNone:
		return "none"
	case FetchOne:
		return "one"
	case FetchAll:
		return "all"
	default:
		return "unknown"
	}
}

// Query is a parameterized statement. Values always travel in Args, never in
// SQL.
type Query struct {
	SQL  string
	Args []any
}

// Scanner is implemented by *sql.Rows and *sql.Row.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc consumes one result row.
type ScanFunc func(row Scanner) error

// Result describes what a statement produced.
type Result struct {
	// Rows is the number of rows handed to the ScanFunc.
	Rows int
	// Found is true when FetchOne or FetchAll saw at least one row.
	Found bool
	// RowsAffected is filled for FetchNone.
	RowsAffected int64
}

// Runner executes a single statement. Both *Executor (one statement per
// transaction) and *Tx (one statement inside a running transaction)
// implement it.
type Runner interface {
	Execute(ctx context.Context, q Query, mode FetchMode, scan ScanFunc) (Result, error)
}

// ExecutorOptions tunes the executor.
type ExecutorOptions struct {
	// QueryTimeout bounds a whole unit of work, zero means no bound.
	QueryTimeout time.Duration
	// SlowQueryThreshold logs units of work slower than this at warn level.
	SlowQueryThreshold time.Duration
}

// Executor runs statements inside transactions on connections taken from a
// Pool.
//
// Every unit of work follows the same contract:
//   - acquire one connection (failure is a *errs.ConnectionError)
//   - BEGIN, run the statements, COMMIT
//   - on any failure ROLLBACK and return the error
//   - release the connection on every path
type Executor struct {
	pool    *Pool
	opts    ExecutorOptions
	log     *zerolog.Logger
	metrics *Metrics
}

// NewExecutor creates an Executor on top of pool.
func NewExecutor(pool *Pool, opts ExecutorOptions, logger *zerolog.Logger, metrics *Metrics) *Executor {
	return &Executor{
		pool:    pool,
		opts:    opts,
		log:     logger,
		metrics: metrics,
	}
}

// Execute runs q as its own transaction.
func (e *Executor) Execute(ctx context.Context, q Query, mode FetchMode, scan ScanFunc) (Result, error) {
	var result Result
	err := e.RunInTx(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		result, err = tx.Execute(ctx, q, mode, scan)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// RunInTx runs fn inside one transaction on one connection. The transaction
// commits when fn returns nil and rolls back otherwise; the error returned by
// fn is passed through unchanged so callers can return domain errors from it.
func (e *Executor) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Release(); err != nil {
			e.log.Warn().Err(err).Str("mode", conn.Mode()).Msg("failed to release database connection")
		}
	}()

	if e.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.QueryTimeout)
		defer cancel()
	}

	start := time.Now()

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		e.observe(conn.Mode(), "error", start, nil)
		return &errs.QueryError{Op: "begin", Err: err}
	}

	tx := &Tx{tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.log.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		e.observe(conn.Mode(), "rollback", start, tx)
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		e.observe(conn.Mode(), "error", start, tx)
		return &errs.QueryError{Op: "commit", Err: err}
	}

	e.observe(conn.Mode(), "commit", start, tx)
	return nil
}

func (e *Executor) observe(mode, outcome string, start time.Time, tx *Tx) {
	took := time.Since(start)
	slow := e.opts.SlowQueryThreshold > 0 && took > e.opts.SlowQueryThreshold

	e.metrics.observeQuery(mode, outcome, took, slow)

	if !slow {
		return
	}

	event := e.log.Warn().
		Dur("duration", took).
		Str("outcome", outcome).
		Str("mode", mode)
	if tx != nil {
		event = event.Int("statements", tx.statements).Str("last_statement", tx.last)
	}
	event.Msg("slow query")
}

// Tx is a running transaction handed to RunInTx callbacks.
type Tx struct {
	tx         *sql.Tx
	statements int
	last       string
}

// Execute runs q inside the transaction. Failures are reported as
// *errs.QueryError and leave the transaction to be rolled back by RunInTx.
func (t *Tx) Execute(ctx context.Context, q Query, mode FetchMode, scan ScanFunc) (Result, error) {
	t.statements++
	t.last = q.SQL

	if mode == FetchNone {
		res, err := t.tx.ExecContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return Result{}, &errs.QueryError{Op: "exec", Err: err}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return Result{}, &errs.QueryError{Op: "rows affected", Err: err}
		}
		return Result{RowsAffected: affected}, nil
	}

	rows, err := t.tx.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return Result{}, &errs.QueryError{Op: "query", Err: err}
	}
	defer rows.Close()

	var result Result
	for rows.Next() {
		if scan != nil {
			if err := scan(rows); err != nil {
				return Result{}, &errs.QueryError{Op: "scan", Err: err}
			}
		}
		result.Rows++
		result.Found = true

		if mode == FetchOne {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return Result{}, &errs.QueryError{Op: "fetch", Err: err}
	}

	if err := rows.Close(); err != nil {
		return Result{}, &errs.QueryError{Op: "fetch", Err: err}
	}

	return result, nil
}
