package database

import "fmt"

// Dialect captures the few SQL differences between the supported backends.
type Dialect string

const (
	// Postgres is served by pgx through its database/sql driver.
	Postgres Dialect = "postgres"

	// SQLite is served by modernc.org/sqlite (local runs and tests).
	SQLite Dialect = "sqlite"
)

// ParseDialect validates a configured driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case Postgres, SQLite:
		return Dialect(driver), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// ForUpdate is appended to a SELECT that guards a row about to be written.
// SQLite needs nothing: transactions start with BEGIN IMMEDIATE and hold the
// write lock until commit.
func (d Dialect) ForUpdate() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// ForShare is appended to a SELECT that guards a referenced parent row so it
// cannot be deleted before the referencing write commits.
func (d Dialect) ForShare() string {
	if d == Postgres {
		return " FOR SHARE"
	}
	return ""
}
