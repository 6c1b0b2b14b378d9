package repository

import (
	"context"

	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/model"
)

const crewIDColumn = "crew_id"

// CrewRepository reads crew members. Crew rows are managed outside this
// service and are never written here.
type CrewRepository struct {
	exec    *database.Executor
	dialect database.Dialect
}

// NewCrewRepository returns a crew reader on exec.
func NewCrewRepository(exec *database.Executor, dialect database.Dialect) *CrewRepository {
	return &CrewRepository{exec: exec, dialect: dialect}
}

// Get returns crew member id or a NotFoundError. Unlike the lookups made
// by writes it takes no lock.
func (r *CrewRepository) Get(ctx context.Context, id int64) (*model.CrewMember, error) {
	q := database.Query{
		SQL:  "SELECT crew_id, name, role, nationality FROM crew WHERE crew_id = " + r.dialect.Placeholder(1),
		Args: []any{id},
	}

	var c model.CrewMember
	res, err := r.exec.Execute(ctx, q, database.FetchOne, func(row database.Scanner) error {
		return row.Scan(&c.CrewID, &c.Name, &c.Role, &c.Nationality)
	})
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, &errs.NotFoundError{Entity: errs.EntityCrew, ID: id}
	}

	return &c, nil
}

// lockName returns the name of crew member id inside tx and keeps the row
// from being deleted until tx ends. A missing row is a NotFoundError.
func (r *CrewRepository) lockName(ctx context.Context, tx database.Runner, id int64) (string, error) {
	q := database.Query{
		SQL:  "SELECT name FROM crew WHERE crew_id = " + r.dialect.Placeholder(1) + r.dialect.ForShare(),
		Args: []any{id},
	}

	var name string
	res, err := tx.Execute(ctx, q, database.FetchOne, func(row database.Scanner) error {
		return row.Scan(&name)
	})
	if err != nil {
		return "", err
	}
	if !res.Found {
		return "", &errs.NotFoundError{Entity: errs.EntityCrew, ID: id}
	}

	return name, nil
}
