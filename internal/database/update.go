package database

import (
	"fmt"
	"strings"

	"github.com/deppfellow/station-api/internal/errs"
)

// Field is one optional column assignment of a partial update.
type Field struct {
	Column  string
	Value   any
	Present bool
}

// Set turns an optional value into a Field. A nil pointer means "not
// supplied" and is skipped by Build; a pointer to the zero value is an
// explicit assignment.
func Set[T any](column string, value *T) Field {
	if value == nil {
		return Field{Column: column}
	}
	return Field{Column: column, Value: *value, Present: true}
}

// SetClause is the rendered "col = ?, col = ?" fragment and its arguments in
// the same order.
type SetClause struct {
	SQL  string
	Args []any
}

// UpdateBuilder assembles the SET clause of a partial update from a fixed set
// of updatable columns. Column names only ever come from that whitelist;
// values are always bound.
type UpdateBuilder struct {
	entity  string
	allowed map[string]struct{}
}

// NewUpdateBuilder fixes the updatable columns of entity.
func NewUpdateBuilder(entity string, columns ...string) *UpdateBuilder {
	allowed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return &UpdateBuilder{
		entity:  entity,
		allowed: allowed,
	}
}

// Build renders the present fields, numbering placeholders from start (used
// by dialects with positional markers). It returns *errs.NoFieldsError when
// no field is present. A column outside the whitelist, or a column given
// twice, is a programming error and is returned as such.
func (b *UpdateBuilder) Build(d Dialect, start int, fields ...Field) (SetClause, error) {
	seen := make(map[string]struct{}, len(fields))
	parts := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))

	for _, f := range fields {
		if _, ok := b.allowed[f.Column]; !ok {
			return SetClause{}, fmt.Errorf("column %q is not updatable on %s", f.Column, b.entity)
		}
		if _, dup := seen[f.Column]; dup {
			return SetClause{}, fmt.Errorf("column %q given more than once", f.Column)
		}
		seen[f.Column] = struct{}{}

		if !f.Present {
			continue
		}

		parts = append(parts, fmt.Sprintf("%s = %s", f.Column, d.Placeholder(start+len(args))))
		args = append(args, f.Value)
	}

	if len(parts) == 0 {
		return SetClause{}, &errs.NoFieldsError{Entity: b.entity}
	}

	return SetClause{
		SQL:  strings.Join(parts, ", "),
		Args: args,
	}, nil
}
