package sqlerr_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/sqlerr"
	"github.com/deppfellow/station-api/internal/testing/dbtest"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asHTTPError(t *testing.T, err error) *errs.HTTPError {
	t.Helper()
	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr), "expected *errs.HTTPError, got %T", err)
	return httpErr
}

func TestHandleErrorDomainKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "crew not found",
			err:     &errs.NotFoundError{Entity: errs.EntityCrew, ID: 999},
			status:  http.StatusNotFound,
			code:    "CREW_NOT_FOUND",
			message: "Crew member with ID 999 not found",
		},
		{
			name:    "mission not found wrapped",
			err:     fmt.Errorf("update: %w", &errs.NotFoundError{Entity: errs.EntityMission, ID: 7}),
			status:  http.StatusNotFound,
			code:    "MISSION_NOT_FOUND",
			message: "Mission with ID 7 not found",
		},
		{
			name:    "no fields",
			err:     &errs.NoFieldsError{Entity: errs.EntityExperiment},
			status:  http.StatusBadRequest,
			code:    "NO_FIELDS_TO_UPDATE",
			message: "No fields to update",
		},
		{
			name:   "connection error",
			err:    &errs.ConnectionError{Err: errors.New("dial tcp: refused")},
			status: http.StatusServiceUnavailable,
			code:   "SERVICE_UNAVAILABLE",
		},
		{
			name:   "query error",
			err:    &errs.QueryError{Op: "exec", Err: errors.New("syntax error")},
			status: http.StatusInternalServerError,
			code:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := asHTTPError(t, sqlerr.HandleError(tt.err))
			assert.Equal(t, tt.status, httpErr.Status)
			assert.Equal(t, tt.code, httpErr.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, httpErr.Message)
			}
		})
	}
}

func TestHandleErrorPassesHTTPErrorThrough(t *testing.T) {
	in := errs.NewTooManyRequestsError("slow down")
	assert.Same(t, in, sqlerr.HandleError(in))
}

func TestHandleErrorPostgres(t *testing.T) {
	t.Run("foreign key", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23503", Severity: "ERROR", TableName: "mission", ConstraintName: "mission_crew_id_fkey"}
		err := &errs.QueryError{Op: "exec", Err: pgErr}

		assert.True(t, sqlerr.IsForeignKeyViolation(err))

		httpErr := asHTTPError(t, sqlerr.HandleError(err))
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.Equal(t, "MISSION_NOT_FOUND", httpErr.Code)
	})

	t.Run("unique", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", Severity: "ERROR", TableName: "mission", ConstraintName: "unique_mission_name"}

		httpErr := asHTTPError(t, sqlerr.HandleError(pgErr))
		assert.Equal(t, "MISSION_ALREADY_EXISTS", httpErr.Code)
		assert.Equal(t, "A Mission with this Name already exists", httpErr.Message)
		assert.True(t, httpErr.Override)
	})

	t.Run("not null", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23502", Severity: "ERROR", TableName: "experiment", ColumnName: "title"}

		httpErr := asHTTPError(t, sqlerr.HandleError(pgErr))
		assert.Equal(t, "EXPERIMENT_REQUIRED", httpErr.Code)
		require.Len(t, httpErr.Errors, 1)
		assert.Equal(t, "title", httpErr.Errors[0].Field)
	})

	t.Run("other sqlstate", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "42601", Severity: "ERROR"}

		httpErr := asHTTPError(t, sqlerr.HandleError(pgErr))
		assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
		assert.Equal(t, sqlerr.Other, sqlerr.ErrCode(pgErr))
	})
}

func TestConvertPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", Severity: "error", Message: "check failed", ColumnName: "status"}

	sqlErr := sqlerr.ConvertPgError(pgErr)

	assert.Equal(t, sqlerr.CheckViolation, sqlErr.Code)
	assert.Equal(t, sqlerr.SeverityError, sqlErr.Severity)
	assert.Equal(t, "23514", sqlErr.DatabaseCode)
	assert.ErrorIs(t, sqlErr, pgErr)
}

func TestHandleErrorSQLite(t *testing.T) {
	db := dbtest.New(t, dbtest.WithForeignKeys())
	ctx := context.Background()

	t.Run("foreign key", func(t *testing.T) {
		_, err := db.Executor.Execute(ctx, database.Query{
			SQL:  "INSERT INTO mission (name, purpose, crew_id) VALUES (?, ?, ?)",
			Args: []any{"Apollo", "Test", 999},
		}, database.FetchNone, nil)
		require.Error(t, err)

		assert.True(t, sqlerr.IsForeignKeyViolation(err))

		httpErr := asHTTPError(t, sqlerr.HandleError(err))
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.Equal(t, 0, dbtest.Count(t, db, "mission"))
	})

	t.Run("not null", func(t *testing.T) {
		_, err := db.Executor.Execute(ctx, database.Query{
			SQL:  "INSERT INTO mission (name, purpose, crew_id) VALUES (?, ?, ?)",
			Args: []any{nil, "Test", 1},
		}, database.FetchNone, nil)
		require.Error(t, err)

		assert.Equal(t, sqlerr.NotNullViolation, sqlerr.ErrCode(err))
		assert.False(t, sqlerr.IsForeignKeyViolation(err))

		httpErr := asHTTPError(t, sqlerr.HandleError(err))
		assert.Equal(t, "MISSION_REQUIRED", httpErr.Code)
		require.Len(t, httpErr.Errors, 1)
		assert.Equal(t, "name", httpErr.Errors[0].Field)
	})
}

func TestErrCodeUnknown(t *testing.T) {
	assert.Equal(t, sqlerr.Other, sqlerr.ErrCode(errors.New("boom")))
	assert.False(t, sqlerr.IsForeignKeyViolation(nil))
}
