package errs

import (
	"errors"
	"fmt"
)

// Entity names used in NotFoundError and NoFieldsError.
const (
	EntityCrew       = "crew"
	EntityMission    = "mission"
	EntityExperiment = "experiment"
)

// ConnectionError reports that no connection to the backing store could be
// obtained (pool exhausted past the acquire timeout, backend unreachable).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports that a statement, a row scan or the commit failed.
// The unit of work has already been rolled back when this is returned.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("database query error: %v", e.Err)
	}
	return fmt.Sprintf("database query error: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NotFoundError reports that a referenced row does not exist.
// Entity is one of the Entity* constants.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", DisplayName(e.Entity), e.ID)
}

// NoFieldsError reports an update request that changes nothing.
type NoFieldsError struct {
	Entity string
}

func (e *NoFieldsError) Error() string {
	return "No fields to update"
}

// DisplayName turns an entity name into the label used in client messages.
func DisplayName(entity string) string {
	switch entity {
	case EntityCrew:
		return "Crew member"
	case EntityMission:
		return "Mission"
	case EntityExperiment:
		return "Experiment"
	case "":
		return "Resource"
	default:
		return entity
	}
}

// IsNotFound reports whether err is a NotFoundError for the given entity.
// An empty entity matches any NotFoundError.
func IsNotFound(err error, entity string) bool {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return entity == "" || nf.Entity == entity
}

// IsNoFields reports whether err is a NoFieldsError.
func IsNoFields(err error) bool {
	var nf *NoFieldsError
	return errors.As(err, &nf)
}
