package database_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/testing/dbtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteOpener(path string) database.Opener {
	return func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open("sqlite", database.SQLiteDSN(path))
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}
}

// flakyOpener fails the first `failures` calls and then delegates to next.
func flakyOpener(failures int32, next database.Opener) (database.Opener, *atomic.Int32) {
	calls := &atomic.Int32{}
	return func(ctx context.Context) (*sql.DB, error) {
		if calls.Add(1) <= failures {
			return nil, errors.New("connection refused")
		}
		return next(ctx)
	}, calls
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestPoolDefaultsSize(t *testing.T) {
	pool := database.NewPool(context.Background(), sqliteOpener(dbtest.Path(t)), database.PoolOptions{}, nopLogger(), nil)
	t.Cleanup(func() { _ = pool.Close() })

	assert.Equal(t, database.DefaultPoolSize, pool.Size())
	assert.False(t, pool.Degraded())
	assert.Equal(t, "pooled", pool.Mode())
	assert.Equal(t, database.DefaultPoolSize, pool.Stats().MaxOpenConnections)
}

func TestPoolAcquireBlocksWhenExhausted(t *testing.T) {
	pool := database.NewPool(context.Background(), sqliteOpener(dbtest.Path(t)), database.PoolOptions{
		Size:           2,
		AcquireTimeout: 100 * time.Millisecond,
	}, nopLogger(), nil)
	t.Cleanup(func() { _ = pool.Close() })

	ctx := context.Background()

	c1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	c2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Stats().InUse)

	_, err = pool.Acquire(ctx)
	require.Error(t, err)
	var connErr *errs.ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// A waiter is served as soon as a connection comes back.
	done := make(chan error, 1)
	go func() {
		c3, err := pool.Acquire(ctx)
		if err == nil {
			err = c3.Release()
		}
		done <- err
	}()

	require.NoError(t, c1.Release())
	require.NoError(t, <-done)
	require.NoError(t, c2.Release())
	assert.Equal(t, 0, pool.Stats().InUse)
}

func TestConnReleaseIsIdempotent(t *testing.T) {
	pool := database.NewPool(context.Background(), sqliteOpener(dbtest.Path(t)), database.PoolOptions{Size: 1}, nopLogger(), nil)
	t.Cleanup(func() { _ = pool.Close() })

	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Release())
	require.NoError(t, conn.Release())
	assert.Equal(t, 0, pool.Stats().InUse)
}

func TestPoolDegradedMode(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := database.NewMetrics("station", reg)

	open, calls := flakyOpener(1, sqliteOpener(dbtest.Path(t)))
	pool := database.NewPool(context.Background(), open, database.PoolOptions{Size: 2}, nopLogger(), metrics)
	t.Cleanup(func() { _ = pool.Close() })

	require.True(t, pool.Degraded())
	assert.Equal(t, "direct", pool.Mode())
	assert.Nil(t, pool.DB())
	assert.Equal(t, sql.DBStats{}, pool.Stats())

	gauge, err := testutil.GatherAndCount(reg, "station_db_pool_degraded")
	require.NoError(t, err)
	assert.Equal(t, 1, gauge)

	ctx := context.Background()

	// Same contract as pooled mode: every acquire gets a working connection,
	// each one backed by its own freshly opened handle.
	c1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	c2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	c3, err := pool.Acquire(ctx)
	require.NoError(t, err)

	assert.Equal(t, "direct", c1.Mode())
	assert.Equal(t, int32(4), calls.Load())
	require.NoError(t, c1.PingContext(ctx))

	for _, c := range []*database.Conn{c1, c2, c3} {
		require.NoError(t, c.Release())
	}

	require.NoError(t, pool.Ping(ctx))
}

func TestPoolDegradedGaugeValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := database.NewMetrics("station", reg)

	open, _ := flakyOpener(1, sqliteOpener(dbtest.Path(t)))
	database.NewPool(context.Background(), open, database.PoolOptions{}, nopLogger(), metrics)

	expected := `
# HELP station_db_pool_degraded 1 when the connection pool could not be built and every acquire opens a direct connection
# TYPE station_db_pool_degraded gauge
station_db_pool_degraded 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "station_db_pool_degraded"))
}

func TestPoolDegradedAcquireFails(t *testing.T) {
	open, _ := flakyOpener(1000, nil)
	pool := database.NewPool(context.Background(), open, database.PoolOptions{}, nopLogger(), nil)

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)

	var connErr *errs.ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Error(t, pool.Ping(context.Background()))
}

func TestPoolAcquireAfterClose(t *testing.T) {
	pool := database.NewPool(context.Background(), sqliteOpener(dbtest.Path(t)), database.PoolOptions{}, nopLogger(), nil)
	require.NoError(t, pool.Close())

	_, err := pool.Acquire(context.Background())
	var connErr *errs.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}
