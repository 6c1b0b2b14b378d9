// Package dbtest provides throwaway databases carrying the station schema,
// for tests that need a real backend: an SQLite file per test (New), and a
// private schema on a PostgreSQL server when one is configured (NewPostgres).
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/station-api/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const crewTable = `CREATE TABLE crew (
	crew_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	role        TEXT NOT NULL,
	nationality TEXT NOT NULL,
	password    TEXT NOT NULL DEFAULT ''
)`

const missionTable = `CREATE TABLE mission (
	mission_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	purpose    TEXT NOT NULL,
	crew_id    INTEGER NOT NULL%s
)`

const experimentTable = `CREATE TABLE experiment (
	experiment_id INTEGER PRIMARY KEY AUTOINCREMENT,
	title         TEXT NOT NULL,
	status        TEXT NOT NULL,
	crew_id       INTEGER NOT NULL%s
)`

const references = " REFERENCES crew (crew_id)"

// Crew is a seeded crew member.
type Crew struct {
	ID          int64
	Name        string
	Role        string
	Nationality string
}

// Alice is always seeded with id 1.
var Alice = Crew{ID: 1, Name: "Alice", Role: "Commander", Nationality: "US"}

// Bob is always seeded with id 2.
var Bob = Crew{ID: 2, Name: "Bob", Role: "Engineer", Nationality: "CA"}

type options struct {
	foreignKeys bool
	pool        database.PoolOptions
	exec        database.ExecutorOptions
}

// Option customizes New.
type Option func(*options)

// WithForeignKeys declares crew_id as a REFERENCES column so the backend
// enforces the relation itself.
func WithForeignKeys() Option {
	return func(o *options) { o.foreignKeys = true }
}

// WithPool overrides the pool options.
func WithPool(opts database.PoolOptions) Option {
	return func(o *options) { o.pool = opts }
}

// WithExecutor overrides the executor options.
func WithExecutor(opts database.ExecutorOptions) Option {
	return func(o *options) { o.exec = opts }
}

// Path returns a fresh database file path inside t's temp dir.
func Path(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "station.db")
}

// New creates a database file, applies the schema and seeds Alice and Bob.
// The database is closed when the test ends.
func New(t testing.TB, opts ...Option) *database.Database {
	t.Helper()

	o := options{
		pool: database.PoolOptions{
			Size:           database.DefaultPoolSize,
			AcquireTimeout: 5 * time.Second,
		},
		exec: database.ExecutorOptions{QueryTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := zerolog.Nop()
	db := database.NewSQLite(Path(t), o.pool, o.exec, &logger)
	require.False(t, db.Pool.Degraded(), "sqlite pool should open")
	t.Cleanup(func() { _ = db.Close() })

	ref := ""
	if o.foreignKeys {
		ref = references
	}

	statements := []string{
		crewTable,
		strings.Replace(missionTable, "%s", ref, 1),
		strings.Replace(experimentTable, "%s", ref, 1),
	}
	for _, stmt := range statements {
		Exec(t, db, stmt)
	}

	SeedCrew(t, db, Alice)
	SeedCrew(t, db, Bob)

	return db
}

// SeedCrew inserts a crew member with a fixed id.
func SeedCrew(t testing.TB, db *database.Database, c Crew) {
	t.Helper()
	d := db.Dialect
	Exec(t, db,
		fmt.Sprintf("INSERT INTO crew (crew_id, name, role, nationality, password) VALUES (%s, %s, %s, %s, %s)",
			d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5)),
		c.ID, c.Name, c.Role, c.Nationality, "secret",
	)
}

// Exec runs a statement and fails the test on error.
func Exec(t testing.TB, db *database.Database, sql string, args ...any) database.Result {
	t.Helper()
	res, err := db.Executor.Execute(context.Background(), database.Query{SQL: sql, Args: args}, database.FetchNone, nil)
	require.NoError(t, err)
	return res
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *database.Database, table string) int {
	t.Helper()
	var n int
	_, err := db.Executor.Execute(context.Background(), database.Query{SQL: "SELECT COUNT(*) FROM " + table}, database.FetchOne,
		func(row database.Scanner) error { return row.Scan(&n) })
	require.NoError(t, err)
	return n
}
