package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/sqlerr"
)

// resourceTable describes one crew-owned table to the generic repository.
//
// V is the view returned to callers, C the create input, P the partial
// update. The crew_id column is handled by the repository itself and must
// not appear in columns.
type resourceTable[V, C, P any] struct {
	entity  string
	name    string
	key     string
	columns []string

	// values returns the create values in columns order, and the crew id.
	values func(in C) ([]any, int64)

	// patch returns one Field per updatable column (crew_id included) and
	// the crew id when it is being changed.
	patch func(p P) ([]database.Field, *int64)

	// scan reads key, columns..., crew_id, crew_name.
	scan func(row database.Scanner) (V, error)

	// view builds the view of a freshly inserted row.
	view func(id int64, in C, crewName string) V
}

// ResourceRepository implements list/create/update/delete for a table whose
// rows reference a crew member.
//
// Every operation runs its existence checks and its write in one
// transaction on one connection: the crew row cannot disappear between the
// check and the write, and the generated key is read back from the INSERT
// itself.
type ResourceRepository[V, C, P any] struct {
	exec    *database.Executor
	dialect database.Dialect
	crew    *CrewRepository
	table   resourceTable[V, C, P]
	updates *database.UpdateBuilder
}

func newResourceRepository[V, C, P any](
	exec *database.Executor,
	dialect database.Dialect,
	crew *CrewRepository,
	table resourceTable[V, C, P],
) *ResourceRepository[V, C, P] {
	updatable := append(append([]string{}, table.columns...), crewIDColumn)

	return &ResourceRepository[V, C, P]{
		exec:    exec,
		dialect: dialect,
		crew:    crew,
		table:   table,
		updates: database.NewUpdateBuilder(table.entity, updatable...),
	}
}

// selectColumns is "r.key, r.col..., r.crew_id, c.name".
func (r *ResourceRepository[V, C, P]) selectColumns() string {
	cols := make([]string, 0, len(r.table.columns)+3)
	cols = append(cols, "r."+r.table.key)
	for _, c := range r.table.columns {
		cols = append(cols, "r."+c)
	}
	cols = append(cols, "r."+crewIDColumn, "c.name AS crew_name")
	return strings.Join(cols, ", ")
}

// insertSQL inserts the data columns plus crew_id and returns the new key.
func (r *ResourceRepository[V, C, P]) insertSQL() string {
	columns := append(append([]string{}, r.table.columns...), crewIDColumn)
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = r.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.table.name, strings.Join(columns, ", "), strings.Join(placeholders, ", "), r.table.key)
}

func (r *ResourceRepository[V, C, P]) lockRowSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s%s",
		r.table.key, r.table.name, r.table.key, r.dialect.Placeholder(1), r.dialect.ForUpdate())
}

// List returns every row whose crew member exists, newest first. Rows
// pointing at a missing crew member are left out.
func (r *ResourceRepository[V, C, P]) List(ctx context.Context) ([]V, error) {
	q := database.Query{
		SQL: fmt.Sprintf(
			`SELECT %s FROM %s r INNER JOIN crew c ON r.crew_id = c.crew_id ORDER BY r.%s DESC`,
			r.selectColumns(), r.table.name, r.table.key,
		),
	}

	items := make([]V, 0)
	_, err := r.exec.Execute(ctx, q, database.FetchAll, func(row database.Scanner) error {
		item, err := r.table.scan(row)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Create inserts a row after checking its crew member exists.
func (r *ResourceRepository[V, C, P]) Create(ctx context.Context, in C) (V, error) {
	var created V

	values, crewID := r.table.values(in)

	err := r.exec.RunInTx(ctx, func(ctx context.Context, tx *database.Tx) error {
		crewName, err := r.crew.lockName(ctx, tx, crewID)
		if err != nil {
			return err
		}

		q := database.Query{SQL: r.insertSQL(), Args: append(values, crewID)}

		var id int64
		res, err := tx.Execute(ctx, q, database.FetchOne, func(row database.Scanner) error {
			return row.Scan(&id)
		})
		if err != nil {
			return crewViolation(err, crewID)
		}
		if !res.Found {
			return &errs.QueryError{Op: "insert", Err: fmt.Errorf("no %s returned", r.table.key)}
		}

		created = r.table.view(id, in, crewName)
		return nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return created, nil
}

// Update applies a partial update to row id.
//
// Checks run in this order, all before anything is written: the row exists,
// the new crew member (if any) exists, at least one field is supplied.
func (r *ResourceRepository[V, C, P]) Update(ctx context.Context, id int64, p P) error {
	fields, crewID := r.table.patch(p)

	return r.exec.RunInTx(ctx, func(ctx context.Context, tx *database.Tx) error {
		if err := r.lockRow(ctx, tx, id); err != nil {
			return err
		}

		if crewID != nil {
			if _, err := r.crew.lockName(ctx, tx, *crewID); err != nil {
				return err
			}
		}

		set, err := r.updates.Build(r.dialect, 1, fields...)
		if err != nil {
			return err
		}

		q := database.Query{
			SQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
				r.table.name, set.SQL, r.table.key, r.dialect.Placeholder(len(set.Args)+1)),
			Args: append(set.Args, id),
		}

		if _, err := tx.Execute(ctx, q, database.FetchNone, nil); err != nil {
			if crewID != nil {
				return crewViolation(err, *crewID)
			}
			return err
		}

		return nil
	})
}

// Delete removes row id.
func (r *ResourceRepository[V, C, P]) Delete(ctx context.Context, id int64) error {
	return r.exec.RunInTx(ctx, func(ctx context.Context, tx *database.Tx) error {
		if err := r.lockRow(ctx, tx, id); err != nil {
			return err
		}

		q := database.Query{
			SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s = %s", r.table.name, r.table.key, r.dialect.Placeholder(1)),
			Args: []any{id},
		}

		_, err := tx.Execute(ctx, q, database.FetchNone, nil)
		return err
	})
}

// lockRow fails with NotFoundError unless row id exists, and keeps it locked
// until the transaction ends.
func (r *ResourceRepository[V, C, P]) lockRow(ctx context.Context, tx *database.Tx, id int64) error {
	q := database.Query{SQL: r.lockRowSQL(), Args: []any{id}}

	res, err := tx.Execute(ctx, q, database.FetchOne, nil)
	if err != nil {
		return err
	}
	if !res.Found {
		return &errs.NotFoundError{Entity: r.table.entity, ID: id}
	}

	return nil
}

// crewViolation turns a foreign key rejection from the backend into the
// same error the explicit crew check returns.
func crewViolation(err error, crewID int64) error {
	if sqlerr.IsForeignKeyViolation(err) {
		return &errs.NotFoundError{Entity: errs.EntityCrew, ID: crewID}
	}
	return err
}
