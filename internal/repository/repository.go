// Package repository holds the SQL for crew, missions and experiments.
//
// Each operation is one transaction on the shared executor: existence checks
// and writes see the same snapshot, and failures come back as errs kinds
// (NotFoundError, NoFieldsError, ConnectionError, QueryError).
package repository
